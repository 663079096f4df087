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

package grpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client calls a running hook service.
// Client 调用运行中的钩子服务。
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to the hook service at target. Extra options are appended to
// the insecure transport default.
// Dial 连接 target 上的钩子服务，额外选项追加在默认的非加密传输之后。
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", target, err)
	}
	return &Client{conn: conn}, nil
}

// InvokeHook fires the named hook on the server.
// InvokeHook 在服务端触发指定钩子。
func (c *Client) InvokeHook(ctx context.Context, name string, opts ...grpc.CallOption) error {
	out := new(emptypb.Empty)
	return c.conn.Invoke(ctx, MethodInvokeHook, wrapperspb.String(name), out, opts...)
}

// Status fetches the tracked emulators.
// Status 获取跟踪的模拟器。
func (c *Client) Status(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, MethodStatus, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Close closes the connection.
// Close 关闭连接。
func (c *Client) Close() error {
	return c.conn.Close()
}
