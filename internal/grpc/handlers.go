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
	"errors"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/seatunnelx/elasticmq-offline/internal/plugin"
	"github.com/seatunnelx/elasticmq-offline/internal/process"
)

// ServiceName is the fully qualified gRPC service name
// ServiceName 是 gRPC 服务的完整名称
const ServiceName = "elasticmq.offline.v1.HookService"

// Full method names / 完整方法名
const (
	MethodInvokeHook = "/" + ServiceName + "/InvokeHook"
	MethodStatus     = "/" + ServiceName + "/Status"
)

// HookServiceServer is the server API for the hook service. Messages are
// protobuf well-known types so no generated code is required.
// HookServiceServer 是钩子服务的服务端接口，消息均为 protobuf 内置类型，无需生成代码。
type HookServiceServer interface {
	// InvokeHook fires the named lifecycle hook / InvokeHook 触发指定的生命周期钩子
	InvokeHook(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error)

	// Status reports the tracked emulators / Status 返回跟踪的模拟器
	Status(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

// HookServiceDesc describes the hook service for grpc.Server.RegisterService
// HookServiceDesc 描述钩子服务，供 grpc.Server.RegisterService 使用
var HookServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*HookServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "InvokeHook", Handler: invokeHookHandler},
		{MethodName: "Status", Handler: statusHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "elasticmq/offline/v1/hook.proto",
}

// RegisterHookServiceServer registers srv on s
// RegisterHookServiceServer 在 s 上注册 srv
func RegisterHookServiceServer(s grpc.ServiceRegistrar, srv HookServiceServer) {
	s.RegisterService(&HookServiceDesc, srv)
}

func invokeHookHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HookServiceServer).InvokeHook(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodInvokeHook}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(HookServiceServer).InvokeHook(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func statusHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HookServiceServer).Status(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodStatus}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(HookServiceServer).Status(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// InvokeHook handles the InvokeHook RPC.
// InvokeHook 处理 InvokeHook 请求。
func (s *Server) InvokeHook(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	name := req.GetValue()
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "hook name is required")
	}

	s.logger.Info("Hook requested over gRPC", zap.String("hook", name))
	if err := s.plugin.Invoke(ctx, name); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

// Status handles the Status RPC.
// Status 处理 Status 请求。
func (s *Server) Status(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	manager := s.plugin.Manager()

	processes := make([]interface{}, 0)
	for _, info := range manager.Status() {
		processes = append(processes, processFields(info))
	}

	out, err := structpb.NewStruct(map[string]interface{}{
		"session":   manager.Session(),
		"stage":     manager.Options().Stage,
		"port":      manager.Port(),
		"processes": processes,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode status: %v", err)
	}
	return out, nil
}

// processFields flattens a ProcessInfo into structpb-compatible values
func processFields(info *process.ProcessInfo) map[string]interface{} {
	fields := map[string]interface{}{
		"session":        info.Session,
		"port":           info.Port,
		"pid":            info.PID,
		"stage":          info.Stage,
		"command":        info.Command,
		"status":         string(info.Status),
		"start_time":     info.StartTime.Format(time.RFC3339),
		"uptime_seconds": info.Uptime.Seconds(),
		"cpu_usage":      info.CPUUsage,
		"memory_usage":   info.MemoryUsage,
	}
	if info.ExitCode != nil {
		fields["exit_code"] = *info.ExitCode
	}
	if info.LastError != "" {
		fields["last_error"] = info.LastError
	}
	return fields
}

// toStatus maps hook errors onto gRPC status codes
// toStatus 将钩子错误映射为 gRPC 状态码
func toStatus(err error) error {
	switch {
	case errors.Is(err, plugin.ErrUnknownHook):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, process.ErrAlreadyRunning):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, process.ErrSpawnFailure):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
