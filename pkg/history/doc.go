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

// Package history records finished runs in a local SQLite database so that
// "upgradecheck history" can list and re-render them.
//
//	st, err := history.Open(ctx, "upgradecheck.db")
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//	err = st.Record(ctx, rep)
//
// The database is created on first use; the driver is the pure Go
// modernc.org/sqlite, so no cgo is required.
package history
