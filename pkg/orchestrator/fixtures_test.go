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

package orchestrator

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/hostqe/upgradecheck/pkg/errors"
	"github.com/hostqe/upgradecheck/pkg/remote/remotetest"
	"github.com/hostqe/upgradecheck/pkg/rhvm"
	"github.com/hostqe/upgradecheck/pkg/rhvm/rhvmtest"
	"github.com/hostqe/upgradecheck/pkg/snapshotter"
	"github.com/hostqe/upgradecheck/pkg/upgrade"
	"github.com/hostqe/upgradecheck/pkg/version"
)

const (
	testSource = "redhat-virtualization-host-4.1-20170522.0"
	testTarget = "redhat-virtualization-host-4.1-20170601.0"
	testRPM    = "redhat-virtualization-host-image-update-4.1-20170601.0.el7.noarch.rpm"
	testLSCPU  = "Model name:            Intel(R) Xeon(R) CPU E5-2620 v3 @ 2.40GHz"

	oldImgbaseW = "You are on rhvh-4.1-0.20170522.0+1"
	newImgbaseW = "You are on rhvh-4.1-0.20170601.0+1"
	oldLayout   = "rhvh-4.1-0.20170522.0\n +- rhvh-4.1-0.20170522.0+1"
)

var baseLVS = []string{
	"  pool00 100000.00m",
	"  [pool00_tmeta] 1024.00m",
	"  rhvh-4.1-0.20170522.0 50000.00m",
	"  rhvh-4.1-0.20170522.0+1 50000.00m",
	"  root 50000.00m",
	"  swap 4096.00m",
	"  var 15360.00m",
}

func oldSnapshot() *snapshotter.Snapshot {
	s := snapshotter.NewSnapshot(snapshotter.TagOld)
	s.ImgbasedVersion = "imgbased-0.9.26-0.1.el7ev.noarch"
	s.UpdateVersion = "redhat-virtualization-host-image-update-placeholder-4.1-0.20170522.el7.noarch"
	s.ImgbaseW = oldImgbaseW
	s.ImgbaseLayout = oldLayout
	s.InitiatorName = "InitiatorName=iqn.1994-05.com.redhat:6a3d4c2b1a"
	s.LVS = strings.Join(baseLVS, "\n")
	s.Findmnt = strings.Join([]string{
		"/ /dev/mapper/rhvh-rhvh--4.1--0.20170522.0+1 ext4 rw,relatime,discard",
		"/boot /dev/sda1 ext4 rw,relatime",
		"/var /dev/mapper/rhvh-var ext4 rw,relatime",
	}, "\n")
	return s
}

func newSnapshot() *snapshotter.Snapshot {
	s := snapshotter.NewSnapshot(snapshotter.TagNew)
	s.ImgbasedVersion = "imgbased-0.9.30-0.1.el7ev.noarch"
	s.UpdateVersion = "redhat-virtualization-host-image-update-4.1-20170601.0.el7.noarch"
	s.ImgbaseW = newImgbaseW
	s.ImgbaseLayout = oldLayout + "\nrhvh-4.1-0.20170601.0\n +- rhvh-4.1-0.20170601.0+1"
	s.InitiatorName = "InitiatorName=iqn.1994-05.com.redhat:6a3d4c2b1a"
	s.LVS = strings.Join(append(append([]string{}, baseLVS...),
		"  rhvh-4.1-0.20170601.0 50000.00m",
		"  rhvh-4.1-0.20170601.0+1 50000.00m",
	), "\n")
	s.Findmnt = strings.Join([]string{
		"/ /dev/mapper/rhvh-rhvh--4.1--0.20170601.0+1 ext4 rw,relatime,discard",
		"/boot /dev/sda1 ext4 rw,relatime",
		"/var /dev/mapper/rhvh-var ext4 rw,relatime",
	}, "\n")
	return s
}

// fakeSnapshotter serves fixed snapshots and can fail or panic per tag.
type fakeSnapshotter struct {
	mu      sync.Mutex
	fail    map[snapshotter.Tag]bool
	panicOn snapshotter.Tag
	tags    []snapshotter.Tag
}

func (f *fakeSnapshotter) Collect(_ context.Context, tag snapshotter.Tag) (*snapshotter.Snapshot, error) {
	f.mu.Lock()
	f.tags = append(f.tags, tag)
	f.mu.Unlock()

	if tag == f.panicOn {
		panic("collector exploded")
	}
	if f.fail[tag] {
		return nil, errors.New(errors.ErrCodeSnapshotIncomplete, "lvs failed")
	}
	if tag == snapshotter.TagOld {
		return oldSnapshot(), nil
	}
	return newSnapshot(), nil
}

type fixture struct {
	session *remotetest.Session
	manager *rhvmtest.Manager
	snaps   *fakeSnapshotter
	driver  *upgrade.Driver
	host    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	if err != nil {
		t.Fatalf("SplitHostPort() error = %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("Atoi() error = %v", err)
	}

	s := upgrade.DefaultSettings()
	s.EngineFQDNs = map[string]string{"4.1": "engine41.example.com"}
	s.UpdateRPMURL = "http://repo.example.com/updates/%s"
	s.CockpitPort = port
	s.HostStatusInterval = 0
	s.EnterSystemInterval = 0
	s.TeardownBackoff = 0

	f := &fixture{
		session: remotetest.New(),
		manager: rhvmtest.New(),
		snaps:   &fakeSnapshotter{fail: map[snapshotter.Tag]bool{}},
		host:    host,
	}
	factory := func(string) (rhvm.Manager, error) { return f.manager, nil }
	f.driver = upgrade.NewDriver(f.session, factory, upgrade.WithSettings(s))

	f.session.
		OnPrefix("curl --retry 20 --remote-time -o /root/"+testRPM, "").
		On(`lscpu | grep "Model name"`, testLSCPU).
		OnPrefix("yum -y install ", "").
		On("systemctl reboot", "").
		OnResponses("imgbase w",
			remotetest.Response{Output: newImgbaseW},
			remotetest.Response{Output: oldImgbaseW}).
		On("imgbase rollback", "").
		OnPrefix("rpm -qa --qf", strings.Join([]string{
			"imgbased-0.9.30-0.1.el7ev.noarch (RSA/SHA256, Key ID fd431d51)",
			"vdsm-4.19.15-1.el7ev.x86_64 (RSA/SHA256, Key ID fd431d51)",
			"redhat-virtualization-host-image-update-4.1-20170601.0.el7.noarch (none)",
		}, "\n")).
		OnFail("yum install /root/"+testRPM, "Examining /root/"+testRPM+"\nNothing to do")

	return f
}

func (f *fixture) orchestrator(opts ...Option) *Orchestrator {
	opts = append([]Option{WithSnapshotter(f.snaps), WithVersion("test")}, opts...)
	return New(f.driver, opts...)
}

func (f *fixture) runContext(s upgrade.Strategy) upgrade.RunContext {
	host := upgrade.HostTarget{Address: f.host, Password: "redhat", MachineName: "dell-per510-01.lab.example.com"}
	return upgrade.NewRunContext(host, version.MustParseBuild(testSource), version.MustParseBuild(testTarget), s)
}
