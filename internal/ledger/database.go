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

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/seatunnelx/elasticmq-offline/internal/config"
)

// Open connects to the ledger database and migrates the schema.
// Open 连接台账数据库并迁移表结构。
// Supported drivers are sqlite (default), mysql and postgres.
// 支持 sqlite（默认）、mysql 与 postgres。
func Open(cfg config.LedgerConfig) (*gorm.DB, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	driver := cfg.Driver
	if driver == "" {
		driver = config.LedgerDriverSQLite
	}

	var dialector gorm.Dialector
	switch driver {
	case config.LedgerDriverSQLite:
		path := cfg.SQLitePath
		if path == "" {
			path = config.DefaultSQLitePath
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("ledger: create sqlite directory: %w", err)
		}
		dialector = sqlite.Open(path)
	case config.LedgerDriverMySQL:
		dialector = mysql.Open(cfg.DSN)
	case config.LedgerDriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLogger(cfg.LogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: connect %s: %w", driver, err)
	}

	// OpenTelemetry spans for every query / 为每个查询生成 OpenTelemetry span
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, fmt.Errorf("ledger: install tracing plugin: %w", err)
	}

	if err := db.AutoMigrate(&Launch{}); err != nil {
		return nil, fmt.Errorf("ledger: migrate: %w", err)
	}
	return db, nil
}

// Close releases the underlying connection pool.
// Close 释放底层连接池。
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func gormLogger(level string) logger.Interface {
	var logLevel logger.LogLevel
	switch level {
	case "silent", "":
		logLevel = logger.Silent
	case "error":
		logLevel = logger.Error
	case "warn":
		logLevel = logger.Warn
	default:
		logLevel = logger.Info
	}
	return logger.Default.LogMode(logLevel)
}
