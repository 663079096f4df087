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

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/seatunnelx/elasticmq-offline/internal/ledger"
	"github.com/seatunnelx/elasticmq-offline/internal/plugin"
	"github.com/seatunnelx/elasticmq-offline/internal/process"
)

// maxPageSize caps the launches page size
const maxPageSize = 100

// Handler provides the HTTP handlers for the status API.
// Handler 提供状态 API 的 HTTP 处理器。
type Handler struct {
	plugin *plugin.Plugin
	repo   *ledger.Repository
}

// NewHandler creates a Handler. repo may be nil when the ledger is disabled.
// NewHandler 创建 Handler，台账禁用时 repo 可为 nil。
func NewHandler(p *plugin.Plugin, repo *ledger.Repository) *Handler {
	return &Handler{plugin: p, repo: repo}
}

// ==================== Request/Response Types 请求/响应类型 ====================

// Response is the envelope shared by every endpoint.
// Response 是所有接口共用的响应结构。
type Response struct {
	ErrorMsg string      `json:"error_msg"`
	Data     interface{} `json:"data"`
}

// EmulatorInfo describes the emulator managed by this process.
// EmulatorInfo 描述本进程管理的模拟器。
type EmulatorInfo struct {
	Session       string                 `json:"session"`
	Stage         string                 `json:"stage"`
	Port          int                    `json:"port"`
	ShouldExecute bool                   `json:"should_execute"`
	NoStart       bool                   `json:"no_start"`
	Processes     []*process.ProcessInfo `json:"processes"`
}

// ListLaunchesRequest represents the query for listing launches.
// ListLaunchesRequest 表示获取启动记录列表的查询参数。
type ListLaunchesRequest struct {
	Session string              `form:"session"`
	Status  ledger.LaunchStatus `form:"status"`
	Port    int                 `form:"port" binding:"min=0,max=65535"`
	Limit   int                 `form:"limit" binding:"min=0"`
	Offset  int                 `form:"offset" binding:"min=0"`
}

// ListLaunchesData is the payload of ListLaunches.
// ListLaunchesData 是 ListLaunches 的响应数据。
type ListLaunchesData struct {
	Total    int64            `json:"total"`
	Launches []*ledger.Launch `json:"launches"`
}

// ==================== Handlers 处理器 ====================

// Health handles GET /api/v1/health.
// Health 处理 GET /api/v1/health。
// @Tags emulator
// @Produce json
// @Success 200 {object} Response
// @Router /api/v1/health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Data: gin.H{
		"status":  "ok",
		"session": h.plugin.Manager().Session(),
	}})
}

// Emulator handles GET /api/v1/emulator.
// Emulator 处理 GET /api/v1/emulator。
// @Tags emulator
// @Produce json
// @Success 200 {object} Response{data=EmulatorInfo}
// @Router /api/v1/emulator [get]
func (h *Handler) Emulator(c *gin.Context) {
	manager := h.plugin.Manager()
	opts := manager.Options()
	c.JSON(http.StatusOK, Response{Data: &EmulatorInfo{
		Session:       manager.Session(),
		Stage:         opts.Stage,
		Port:          manager.Port(),
		ShouldExecute: manager.ShouldExecute(),
		NoStart:       opts.NoStart,
		Processes:     manager.Status(),
	}})
}

// InvokeHook handles POST /api/v1/hooks/:name.
// InvokeHook 处理 POST /api/v1/hooks/:name。
// @Tags hooks
// @Param name path string true "钩子名称，如 before:offline:start"
// @Produce json
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Failure 409 {object} Response
// @Failure 502 {object} Response
// @Router /api/v1/hooks/{name} [post]
func (h *Handler) InvokeHook(c *gin.Context) {
	name := c.Param("name")
	if err := h.plugin.Invoke(c.Request.Context(), name); err != nil {
		c.JSON(hookErrorStatus(err), Response{ErrorMsg: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Data: gin.H{"hook": name}})
}

// ListLaunches handles GET /api/v1/launches.
// ListLaunches 处理 GET /api/v1/launches。
// @Tags launches
// @Param request query ListLaunchesRequest true "查询参数"
// @Produce json
// @Success 200 {object} Response{data=ListLaunchesData}
// @Failure 503 {object} Response
// @Router /api/v1/launches [get]
func (h *Handler) ListLaunches(c *gin.Context) {
	if h.repo == nil {
		c.JSON(http.StatusServiceUnavailable, Response{ErrorMsg: ledger.ErrDisabled.Error()})
		return
	}

	req := &ListLaunchesRequest{Limit: 20}
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, Response{ErrorMsg: err.Error()})
		return
	}
	if req.Limit == 0 || req.Limit > maxPageSize {
		req.Limit = maxPageSize
	}

	launches, total, err := h.repo.List(c.Request.Context(), &ledger.LaunchFilter{
		Session: req.Session,
		Status:  req.Status,
		Port:    req.Port,
		Limit:   req.Limit,
		Offset:  req.Offset,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{ErrorMsg: err.Error()})
		return
	}
	if launches == nil {
		launches = []*ledger.Launch{}
	}
	c.JSON(http.StatusOK, Response{Data: &ListLaunchesData{Total: total, Launches: launches}})
}

// GetLaunch handles GET /api/v1/launches/:id.
// GetLaunch 处理 GET /api/v1/launches/:id。
// @Tags launches
// @Param id path int true "启动记录 ID"
// @Produce json
// @Success 200 {object} Response{data=ledger.Launch}
// @Failure 404 {object} Response
// @Router /api/v1/launches/{id} [get]
func (h *Handler) GetLaunch(c *gin.Context) {
	if h.repo == nil {
		c.JSON(http.StatusServiceUnavailable, Response{ErrorMsg: ledger.ErrDisabled.Error()})
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{ErrorMsg: "invalid launch id"})
		return
	}

	launch, err := h.repo.Get(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, ledger.ErrLaunchNotFound) {
			c.JSON(http.StatusNotFound, Response{ErrorMsg: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, Response{ErrorMsg: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Data: launch})
}

func hookErrorStatus(err error) int {
	switch {
	case errors.Is(err, plugin.ErrUnknownHook):
		return http.StatusNotFound
	case errors.Is(err, process.ErrAlreadyRunning):
		return http.StatusConflict
	case errors.Is(err, process.ErrSpawnFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
