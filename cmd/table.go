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

package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/seatunnelx/elasticmq-offline/internal/ledger"
)

// printTable renders a borderless table
// printTable 渲染无边框表格
func printTable(w io.Writer, headers []string, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	table.AppendBulk(rows)
	table.Render()
}

// printLaunches renders ledger records
// printLaunches 渲染台账记录
func printLaunches(w io.Writer, launches []*ledger.Launch) {
	rows := make([][]string, 0, len(launches))
	for _, l := range launches {
		ended, exit := "-", "-"
		if l.EndedAt != nil {
			ended = l.EndedAt.Format(time.DateTime)
		}
		if l.ExitCode != nil {
			exit = strconv.Itoa(*l.ExitCode)
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(l.ID), 10),
			l.Session,
			strconv.Itoa(l.Port),
			strconv.Itoa(l.PID),
			string(l.Status),
			l.StartedAt.Format(time.DateTime),
			ended,
			exit,
			l.LastError,
		})
	}
	printTable(w, []string{"ID", "Session", "Port", "PID", "Status", "Started", "Ended", "Exit", "Note"}, rows)
}

// printStatus renders the Status RPC payload
// printStatus 渲染 Status 接口返回的数据
func printStatus(w io.Writer, status map[string]interface{}) error {
	fmt.Fprintf(w, "Session: %v\nStage: %v\nPort: %v\n\n", status["session"], status["stage"], number(status["port"]))

	procs, _ := status["processes"].([]interface{})
	rows := make([][]string, 0, len(procs))
	for _, raw := range procs {
		p, ok := raw.(map[string]interface{})
		if !ok {
			return fmt.Errorf("unexpected process entry %T", raw)
		}
		uptime := time.Duration(toFloat(p["uptime_seconds"]) * float64(time.Second)).Truncate(time.Second)
		rows = append(rows, []string{
			number(p["port"]),
			number(p["pid"]),
			fmt.Sprint(p["status"]),
			uptime.String(),
			fmt.Sprintf("%.1f%%", toFloat(p["cpu_usage"])),
			fmt.Sprintf("%.1fMB", toFloat(p["memory_usage"])/1024/1024),
			fmt.Sprint(p["command"]),
		})
	}
	printTable(w, []string{"Port", "PID", "Status", "Uptime", "CPU", "Memory", "Command"}, rows)
	return nil
}

func toFloat(v interface{}) float64 {
	f, _ := v.(float64)
	return f
}

// number formats a structpb number without a fractional part
func number(v interface{}) string {
	return strconv.FormatInt(int64(toFloat(v)), 10)
}
