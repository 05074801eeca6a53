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

// Package notify delivers operator alerts over a Telegram-compatible bot webhook.
// notify 包通过 Telegram 兼容的机器人 webhook 发送运维告警。
package notify

import (
	"context"
	"errors"
)

// Sentinel errors / 哨兵错误
var (
	// ErrRejected is returned when the endpoint answers with ok=false
	// ErrRejected 表示端点返回 ok=false
	ErrRejected = errors.New("alert rejected by endpoint")

	// ErrBadStatus is returned for a non-2xx response without a JSON body
	// ErrBadStatus 表示非 2xx 响应且无 JSON 内容
	ErrBadStatus = errors.New("unexpected response status")
)

// Notifier sends best-effort alerts. SendAlert never reports failure to the
// caller and must never stall the caller beyond its own configured timeout.
// Notifier 发送尽力而为的告警，SendAlert 不向调用方报告失败。
type Notifier interface {
	SendAlert(ctx context.Context, text string)
}

// NopNotifier drops every alert, used when notifications are disabled
// NopNotifier 丢弃所有告警，用于关闭通知时
type NopNotifier struct{}

// SendAlert implements Notifier / SendAlert 实现 Notifier
func (NopNotifier) SendAlert(context.Context, string) {}
