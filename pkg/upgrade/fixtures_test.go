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

package upgrade

import (
	"github.com/hostqe/upgradecheck/pkg/remote/remotetest"
	"github.com/hostqe/upgradecheck/pkg/rhvm"
	"github.com/hostqe/upgradecheck/pkg/rhvm/rhvmtest"
	"github.com/hostqe/upgradecheck/pkg/version"
)

const (
	testEngine = "engine41.example.com"
	testLSCPU  = "Model name:            Intel(R) Xeon(R) CPU E5-2620 v3 @ 2.40GHz"
)

var (
	testSource = version.MustParseBuild("redhat-virtualization-host-4.1-20170421.0")
	testTarget = version.MustParseBuild("redhat-virtualization-host-4.1-20170522.0")
	testHost   = HostTarget{Address: "10.66.8.150", Password: "redhat", MachineName: "dell-per510-01.lab.example.com"}
)

func testSettings() Settings {
	s := DefaultSettings()
	s.EngineFQDNs = map[string]string{"4.1": testEngine}
	s.LocalRepoDir = "/srv/repos"
	s.UpdateRPMURL = "http://repo.example.com/updates/%s"
	s.HostStatusMaxCount = 4
	s.EnterSystemMaxCount = 3
	s.TeardownAttempts = 3
	s.HostStatusInterval = 0
	s.EnterSystemInterval = 0
	s.TeardownBackoff = 0
	return s
}

type fixture struct {
	session *remotetest.Session
	manager *rhvmtest.Manager
	driver  *Driver
	fqdns   []string
}

func newFixture(opts ...Option) *fixture {
	f := &fixture{
		session: remotetest.New(),
		manager: rhvmtest.New(),
	}
	factory := func(fqdn string) (rhvm.Manager, error) {
		f.fqdns = append(f.fqdns, fqdn)
		return f.manager, nil
	}
	opts = append([]Option{WithSettings(testSettings())}, opts...)
	f.driver = NewDriver(f.session, factory, opts...)
	return f
}

func (f *fixture) runContext(s Strategy) RunContext {
	return NewRunContext(testHost, testSource, testTarget, s)
}

// registered returns a run context already registered against the fixture manager.
func (f *fixture) registered(s Strategy) RunContext {
	reg := HostRegistration{
		EngineFQDN: testEngine,
		Datacenter: "dell-per510-01",
		Cluster:    "dell-per510-01",
		HostName:   "dell-per510-01",
		HostIP:     testHost.Address,
		CPUType:    CPUTypeIntel,
	}
	return f.runContext(s).WithRegistration(reg, f.manager)
}

func countCalls(calls []string, cmd string) int {
	n := 0
	for _, c := range calls {
		if c == cmd {
			n++
		}
	}
	return n
}
