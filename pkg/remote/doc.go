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

// Package remote runs commands on the host under test.
//
// Runner is the narrow contract used by snapshot collection and verification;
// Session adds file copies and connection control for the upgrade steps that
// reboot the host. SSHClient is the production implementation:
//
//	c, err := remote.NewSSHClient(remote.Config{Host: addr, Password: pass})
//	out, err := c.Run(ctx, "imgbase w", defaults.RemoteCommandTimeout)
//
// Failures carry the REMOTE_EXEC_FAILURE code and the command in their context.
package remote
