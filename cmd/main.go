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

// Package main is the entry point for elasticmq-offline.
// main 包是 elasticmq-offline 的入口点。
//
// elasticmq-offline runs the ElasticMQ emulator next to a serverless-offline
// session and makes sure it dies with the session:
// elasticmq-offline 在 serverless-offline 会话旁运行 ElasticMQ 模拟器，并确保其随会话一起退出：
// - Starts java -jar elasticmq-server on the offline start hook / 在离线启动钩子上启动模拟器
// - Kills it on the end hook, on signals and on any exit / 在结束钩子、信号与任意退出时终止模拟器
// - Records launches and reaps orphans of earlier sessions / 记录启动并清理先前会话的遗留进程
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seatunnelx/elasticmq-offline/internal/config"
	hookgrpc "github.com/seatunnelx/elasticmq-offline/internal/grpc"
	"github.com/seatunnelx/elasticmq-offline/internal/ledger"
	"github.com/seatunnelx/elasticmq-offline/internal/logger"
)

// Version information, set at build time
// 版本信息，在构建时设置
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// rpcTimeout bounds client calls to the hook service
const rpcTimeout = 30 * time.Second

// cliOptions holds the global flags
// cliOptions 保存全局标志
type cliOptions struct {
	configFile string
	stage      string
	port       int
	noStart    bool
}

// newRootCmd builds the command tree
// newRootCmd 构建命令树
func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	rootCmd := &cobra.Command{
		Use:   "elasticmq-offline",
		Short: "ElasticMQ emulator for serverless-offline development",
		Long: `elasticmq-offline starts the ElasticMQ emulator for local serverless-offline development.
elasticmq-offline 为本地 serverless-offline 开发启动 ElasticMQ 模拟器。

The emulator is started when the offline session begins and killed when it ends,
on termination signals and on any exit of this process.
模拟器在离线会话开始时启动，在会话结束、收到终止信号或本进程退出时被终止。`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, opts, true)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "config file path (default: serverless.yml or $"+config.EnvConfigPath+")")
	flags.StringVarP(&opts.stage, "stage", "s", "", "deployment stage, overrides provider.stage")
	flags.IntVarP(&opts.port, "port", "p", 0, "emulator port, overrides custom.elasticmq.start.port")
	flags.BoolVar(&opts.noStart, "no-start", false, "do not start the emulator, overrides custom.elasticmq.start.noStart")

	rootCmd.AddCommand(
		newStartCmd(opts),
		newServeCmd(opts),
		newHookCmd(opts),
		newStatusCmd(opts),
		newLaunchesCmd(opts),
		newReapCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

// newStartCmd runs a session that starts the emulator immediately
// newStartCmd 运行立即启动模拟器的会话
func newStartCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the emulator and keep it alive until interrupted / 启动模拟器直到被中断",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, opts, true)
		},
	}
}

// newServeCmd runs a session driven by the control servers
// newServeCmd 运行由控制服务驱动的会话
func newServeCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the hook service and status API, start on demand / 提供钩子服务与状态 API，按需启动",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, opts, false)
		},
	}
}

// newHookCmd fires a hook on a running serve session
// newHookCmd 在运行中的 serve 会话上触发钩子
func newHookCmd(opts *cliOptions) *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "hook <name>",
		Short: "Fire a lifecycle hook on a running serve session / 在运行中的会话上触发生命周期钩子",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := grpcTarget(cmd, opts, address)
			if err != nil {
				return err
			}
			client, err := hookgrpc.Dial(target)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := context.WithTimeout(commandContext(cmd), rpcTimeout)
			defer cancel()
			if err := client.InvokeHook(ctx, args[0]); err != nil {
				return fmt.Errorf("hook %s failed: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Hook %s done\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "hook service address (default: server.grpc.address)")
	return cmd
}

// newStatusCmd prints the emulators of a running serve session
// newStatusCmd 打印运行中会话的模拟器
func newStatusCmd(opts *cliOptions) *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the emulators of a running serve session / 显示运行中会话的模拟器",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := grpcTarget(cmd, opts, address)
			if err != nil {
				return err
			}
			client, err := hookgrpc.Dial(target)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := context.WithTimeout(commandContext(cmd), rpcTimeout)
			defer cancel()
			st, err := client.Status(ctx)
			if err != nil {
				return fmt.Errorf("status failed: %w", err)
			}
			return printStatus(cmd.OutOrStdout(), st.AsMap())
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "hook service address (default: server.grpc.address)")
	return cmd
}

// newLaunchesCmd lists recorded launches
// newLaunchesCmd 列出启动记录
func newLaunchesCmd(opts *cliOptions) *cobra.Command {
	filter := &ledger.LaunchFilter{}
	cmd := &cobra.Command{
		Use:   "launches",
		Short: "List recorded emulator launches / 列出模拟器启动记录",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			db, err := ledger.Open(cfg.Ledger)
			if err != nil {
				return err
			}
			defer ledger.Close(db)

			launches, total, err := ledger.NewRepository(db).List(commandContext(cmd), filter)
			if err != nil {
				return err
			}
			printLaunches(cmd.OutOrStdout(), launches)
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d of %d launch(es)\n", len(launches), total)
			return nil
		},
	}
	cmd.Flags().StringVar(&filter.Session, "session", "", "filter by session id")
	cmd.Flags().StringVar((*string)(&filter.Status), "status", "", "filter by status (running, stopped, crashed, failed, reaped)")
	cmd.Flags().IntVar(&filter.Limit, "limit", 20, "maximum number of launches")
	return cmd
}

// newReapCmd kills emulators recorded as running by other sessions
// newReapCmd 终止其他会话记录为运行中的模拟器
func newReapCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reap",
		Short: "Kill emulators orphaned by earlier sessions, --port limits to one port / 终止先前会话遗留的模拟器",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			db, err := ledger.Open(cfg.Ledger)
			if err != nil {
				return err
			}
			defer ledger.Close(db)

			reaper := ledger.NewReaper(ledger.NewRepository(db), log)
			var reaped []*ledger.Launch
			if cmd.Flags().Changed("port") {
				reaped, err = reaper.ReapPort(commandContext(cmd), "", opts.port)
			} else {
				reaped, err = reaper.Reap(commandContext(cmd), "")
			}
			if err != nil {
				return err
			}
			printLaunches(cmd.OutOrStdout(), reaped)
			fmt.Fprintf(cmd.OutOrStdout(), "\nReaped %d launch(es)\n", len(reaped))
			return nil
		},
	}
}

// newConfigCmd prints the effective configuration
// newConfigCmd 打印生效的配置
func newConfigCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration / 打印生效的配置",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			data, err := cfg.ToYAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

// newVersionCmd shows version information
// newVersionCmd 显示版本信息
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information / 打印版本信息",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "elasticmq-offline\n")
			fmt.Fprintf(out, "  Version:    %s\n", Version)
			fmt.Fprintf(out, "  Git Commit: %s\n", GitCommit)
			fmt.Fprintf(out, "  Build Time: %s\n", BuildTime)
			fmt.Fprintf(out, "  Go Version: %s\n", runtime.Version())
			fmt.Fprintf(out, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// loadConfig loads the configuration with the changed flags on top
// loadConfig 加载配置，并以已设置的标志覆盖
func loadConfig(cmd *cobra.Command, opts *cliOptions) (*config.Config, error) {
	cmdArgs := map[string]interface{}{}
	flags := cmd.Flags()
	if flags.Changed("stage") {
		cmdArgs["provider.stage"] = opts.stage
	}
	if flags.Changed("port") {
		cmdArgs["custom.elasticmq.start.port"] = opts.port
	}
	if flags.Changed("no-start") {
		cmdArgs["custom.elasticmq.start.noStart"] = opts.noStart
	}

	cfg, err := config.LoadWithPriority(opts.configFile, cmdArgs)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// runSession loads the configuration and runs an Offline session
// runSession 加载配置并运行离线会话
func runSession(cmd *cobra.Command, opts *cliOptions, autoStart bool) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	if !autoStart {
		cfg.Server.GRPC.Enabled = true
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	offline := NewOffline(cfg, nil, log)
	offline.out = cmd.OutOrStdout()
	if err := offline.Run(commandContext(cmd), autoStart); err != nil {
		log.Error("Session ended with error", zap.Error(err))
		return err
	}
	return nil
}

func grpcTarget(cmd *cobra.Command, opts *cliOptions, address string) (string, error) {
	if address != "" {
		return address, nil
	}
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return "", err
	}
	return cfg.Server.GRPC.Address, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// @title ElasticMQ Offline API
// @version 1.0
// @description Status and hook API of the ElasticMQ emulator launcher.
// @BasePath /
func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
