/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package ledger

import "errors"

// Error definitions for ledger operations.
// 台账操作的错误定义。
var (
	// ErrLaunchNotFound indicates the requested launch does not exist.
	// ErrLaunchNotFound 表示请求的启动记录不存在。
	ErrLaunchNotFound = errors.New("ledger: launch not found")
	// ErrLaunchNotRunning indicates the launch has already ended.
	// ErrLaunchNotRunning 表示启动记录已结束。
	ErrLaunchNotRunning = errors.New("ledger: launch is not running")
	// ErrSessionEmpty indicates the session is empty.
	// ErrSessionEmpty 表示会话为空。
	ErrSessionEmpty = errors.New("ledger: session cannot be empty")
	// ErrInvalidPort indicates the port is outside 1..65535.
	// ErrInvalidPort 表示端口不在 1..65535 范围内。
	ErrInvalidPort = errors.New("ledger: invalid port")
	// ErrUnsupportedDriver indicates an unknown database driver.
	// ErrUnsupportedDriver 表示不支持的数据库驱动。
	ErrUnsupportedDriver = errors.New("ledger: unsupported database driver")
	// ErrDisabled indicates the ledger is disabled in configuration.
	// ErrDisabled 表示配置中禁用了台账。
	ErrDisabled = errors.New("ledger: disabled")
)
