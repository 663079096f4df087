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
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Repository provides data access operations for Launch records.
// Repository 提供 Launch 记录的数据访问操作。
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new Repository instance.
// NewRepository 创建一个新的 Repository 实例。
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a launch record. StartedAt defaults to now and Status to running.
// Create 插入启动记录，StartedAt 默认为当前时间，Status 默认为 running。
func (r *Repository) Create(ctx context.Context, launch *Launch) error {
	if launch.Session == "" {
		return ErrSessionEmpty
	}
	if launch.Port <= 0 || launch.Port > 65535 {
		return ErrInvalidPort
	}
	if launch.Status == "" {
		launch.Status = LaunchStatusRunning
	}
	if launch.StartedAt.IsZero() {
		launch.StartedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(launch).Error
}

// Get retrieves a launch by its ID.
// Get 通过 ID 获取启动记录。
// Returns ErrLaunchNotFound if the launch does not exist.
// 如果记录不存在，则返回 ErrLaunchNotFound。
func (r *Repository) Get(ctx context.Context, id uint) (*Launch, error) {
	var launch Launch
	if err := r.db.WithContext(ctx).First(&launch, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLaunchNotFound
		}
		return nil, err
	}
	return &launch, nil
}

// MarkEnded moves a running launch to a terminal status. A launch that has
// already ended is left untouched and ErrLaunchNotRunning is returned.
// MarkEnded 将运行中的记录置为终态；已结束的记录保持不变并返回 ErrLaunchNotRunning。
func (r *Repository) MarkEnded(ctx context.Context, id uint, status LaunchStatus, exitCode *int, lastError string) error {
	updates := map[string]interface{}{
		"status":     status,
		"ended_at":   time.Now(),
		"exit_code":  exitCode,
		"last_error": lastError,
	}
	result := r.db.WithContext(ctx).Model(&Launch{}).
		Where("id = ? AND status = ?", id, LaunchStatusRunning).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return ErrLaunchNotRunning
}

// List retrieves launches matching the filter, newest first, with the total count.
// List 按过滤条件获取启动记录（最新在前）及总数。
func (r *Repository) List(ctx context.Context, filter *LaunchFilter) ([]*Launch, int64, error) {
	query := r.db.WithContext(ctx).Model(&Launch{})

	// Apply filters - 应用过滤条件
	if filter != nil {
		if filter.Session != "" {
			query = query.Where("session = ?", filter.Session)
		}
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
		if filter.Port > 0 {
			query = query.Where("port = ?", filter.Port)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter != nil {
		if filter.Limit > 0 {
			query = query.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			query = query.Offset(filter.Offset)
		}
	}

	var launches []*Launch
	if err := query.Order("started_at DESC, id DESC").Find(&launches).Error; err != nil {
		return nil, 0, err
	}
	return launches, total, nil
}

// ListRunning returns every launch still recorded as running.
// ListRunning 返回所有仍记录为运行中的启动。
func (r *Repository) ListRunning(ctx context.Context) ([]*Launch, error) {
	launches, _, err := r.List(ctx, &LaunchFilter{Status: LaunchStatusRunning})
	return launches, err
}
