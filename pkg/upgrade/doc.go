// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package upgrade drives a host from its source build to the target build.
//
// A Driver owns the SSH session to the host and a factory for engine
// clients. Each Strategy maps to an ordered list of steps:
//
//	yum_update    seed marker files, put repo, register, wait up, cockpit,
//	              install kmod-oracleasm and httpd, yum update, reboot
//	yum_install   fetch update rpm, register, wait up, cockpit,
//	              yum install, reboot
//	rhvm_upgrade  add route, put repo, register on vlan, wait up, cockpit,
//	              engine upgrade, wait for the host to come back
//
// Steps run strictly in order and the first failure stops the pipeline. The
// RunContext returned on failure still carries whatever was registered, so
// callers must always pass it to Teardown:
//
//	d := upgrade.NewDriver(session, factory, upgrade.WithSettings(s))
//	rc, err := d.Run(ctx, upgrade.NewRunContext(host, source, target, strategy))
//	defer d.Teardown(context.WithoutCancel(ctx), rc)
//
// Polling loops (host status, reboot, teardown) run on the apimachinery wait
// helpers and are bounded by the counts and intervals in Settings.
package upgrade
