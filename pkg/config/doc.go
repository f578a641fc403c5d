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

// Package config loads harness settings from a YAML file and the environment.
//
// Settings are read, in increasing precedence, from built-in defaults, the
// config file and UPGRADECHECK_* environment variables. Command line flags are
// applied on top by pkg/cli.
//
// Keys are kebab-case. The environment form upper-cases the key and replaces
// dashes with underscores:
//
//	engine-password  ->  UPGRADECHECK_ENGINE_PASSWORD
//	s3-bucket        ->  UPGRADECHECK_S3_BUCKET
//
// A minimal file:
//
//	engine-fqdns:
//	  "4.0": engine40.lab.example.com
//	  "4.1": engine41.lab.example.com
//	engine-password: secret
//	repo-dir: /srv/upgradecheck/repos
//	update-rpm-url: http://repo.lab.example.com/updates/%s
//	history-path: /var/lib/upgradecheck/history.db
//
// Durations use Go syntax ("30s", "10m").
package config
