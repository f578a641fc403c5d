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

package remote_test

import (
	"context"
	"testing"
	"time"

	"github.com/hostqe/upgradecheck/pkg/errors"
	"github.com/hostqe/upgradecheck/pkg/remote"
	"github.com/hostqe/upgradecheck/pkg/remote/remotetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/etc/my.cnf", "'/etc/my.cnf'"},
		{"it's", `'it'\''s'`},
		{"", "''"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, remote.Quote(tt.in))
	}
}

func TestOutputContains(t *testing.T) {
	s := remotetest.New().
		On("yum update", "Loaded plugins\nNo packages marked for update").
		OnFail("yum install /root/x.rpm", "Nothing to do")

	ok, _, err := remote.OutputContains(context.Background(), s, "yum update", time.Second, "No packages marked for update")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _, err = remote.OutputContains(context.Background(), s, "yum update", time.Second, "Complete!")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, out, err := remote.OutputContains(context.Background(), s, "yum install /root/x.rpm", time.Second, "Nothing")
	require.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, "Nothing to do", out)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRemoteExec))
}

func TestFileContains(t *testing.T) {
	s := remotetest.New().
		On("cat '/etc/upgrade_test'", "test").
		On("cat '/etc/my.cnf'", "[mysqld]\n# test")

	ok, err := remote.FileContains(context.Background(), s, "/etc/upgrade_test", time.Second, "test")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = remote.FileContains(context.Background(), s, "/etc/my.cnf", time.Second, "# test", "[mysqld]")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = remote.FileContains(context.Background(), s, "/etc/missing", time.Second, "x")
	require.Error(t, err)
}

func TestFakeSessionQueuesAndPrefixes(t *testing.T) {
	s := remotetest.New().
		OnResponses("imgbase w",
			remotetest.Response{Failed: true},
			remotetest.Response{Output: "You are on rhvh-4.1-0.20170522.0+1"}).
		OnPrefix("ls /usr/lib/modules/", "oracleasm").
		OnPrefix("ls /usr/lib/modules/3.10", "specific")

	_, err := s.Run(context.Background(), "imgbase w", 0)
	require.Error(t, err)
	out, err := s.Run(context.Background(), "imgbase w", 0)
	require.NoError(t, err)
	assert.Equal(t, "You are on rhvh-4.1-0.20170522.0+1", out)
	out, _ = s.Run(context.Background(), "imgbase w", 0)
	assert.Equal(t, "You are on rhvh-4.1-0.20170522.0+1", out, "last response repeats")

	out, _ = s.Run(context.Background(), "ls /usr/lib/modules/3.10.0-514.el7.x86_64/weak-updates/", 0)
	assert.Equal(t, "specific", out, "longest prefix wins")

	assert.True(t, s.Called("weak-updates"))
	assert.Len(t, s.Calls(), 4)
}
