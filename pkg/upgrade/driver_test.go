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
	"context"
	stderrors "errors"
	"reflect"
	"testing"

	"github.com/hostqe/upgradecheck/pkg/errors"
)

func TestStrategyFromDefinition(t *testing.T) {
	tests := []struct {
		definition string
		want       Strategy
		wantErr    bool
	}{
		{"ati_upgrade_yum_update.ks", StrategyYumUpdate, false},
		{"ati_upgrade_yum_install.ks", StrategyYumInstall, false},
		{"vlan_rhvm_upgrade_bond.ks", StrategyRhvmUpgrade, false},
		{"ati_fc_01.ks", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.definition, func(t *testing.T) {
			got, err := StrategyFromDefinition(tt.definition)
			if (err != nil) != tt.wantErr {
				t.Fatalf("StrategyFromDefinition() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.IsCode(err, errors.ErrCodeInvalidRequest) {
					t.Errorf("code = %s, want %s", errors.CodeOf(err), errors.ErrCodeInvalidRequest)
				}
				return
			}
			if got != tt.want {
				t.Errorf("StrategyFromDefinition() = %s, want %s", got, tt.want)
			}
			if !got.IsValid() {
				t.Errorf("%s should be valid", got)
			}
		})
	}

	if Strategy("dnf_upgrade").IsValid() {
		t.Error("unknown strategy reported valid")
	}
}

func TestHostTarget_Label(t *testing.T) {
	tests := []struct {
		host HostTarget
		want string
	}{
		{HostTarget{Address: "10.66.8.150", MachineName: "dell-per510-01.lab.example.com"}, "dell-per510-01"},
		{HostTarget{Address: "hp-dl360.lab.example.com"}, "hp-dl360"},
		{HostTarget{Address: "localhost"}, "localhost"},
	}
	for _, tt := range tests {
		if got := tt.host.Label(); got != tt.want {
			t.Errorf("Label(%+v) = %q, want %q", tt.host, got, tt.want)
		}
	}
}

func TestDriver_Pipeline(t *testing.T) {
	d := newFixture().driver

	tests := []struct {
		strategy Strategy
		want     []string
	}{
		{StrategyYumUpdate, []string{
			"seed-marker-files", "put-host-repo", "register-host", "wait-host-up",
			"check-cockpit", "install-rpms", "yum-update", "reboot",
		}},
		{StrategyYumInstall, []string{
			"fetch-update-rpm", "register-host", "wait-host-up", "check-cockpit", "yum-install", "reboot",
		}},
		{StrategyRhvmUpgrade, []string{
			"add-route", "put-host-repo", "register-host", "wait-host-up",
			"check-cockpit", "engine-upgrade", "wait-host-back",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.strategy.String(), func(t *testing.T) {
			steps, err := d.Pipeline(tt.strategy)
			if err != nil {
				t.Fatalf("Pipeline() error = %v", err)
			}
			names := make([]string, 0, len(steps))
			for _, s := range steps {
				names = append(names, s.Name)
			}
			if !reflect.DeepEqual(names, tt.want) {
				t.Errorf("Pipeline() = %v, want %v", names, tt.want)
			}
		})
	}

	if _, err := d.Pipeline("bogus"); !errors.IsCode(err, errors.ErrCodeInvalidRequest) {
		t.Errorf("Pipeline(bogus) error = %v, want %s", err, errors.ErrCodeInvalidRequest)
	}
}

func TestDriver_RunStepsFailFast(t *testing.T) {
	d := newFixture().driver
	var ran []string

	step := func(name string, fail bool) Step {
		return Step{Name: name, Fn: func(_ context.Context, rc RunContext) (RunContext, error) {
			ran = append(ran, name)
			if fail {
				return rc.WithUpdateRPM("/root/partial.rpm"), errors.New(errors.ErrCodeRemoteExec, "boom")
			}
			return rc, nil
		}}
	}

	rc, err := d.runSteps(context.Background(), NewRunContext(testHost, testSource, testTarget, StrategyYumInstall),
		[]Step{step("one", false), step("two", true), step("three", false)})

	if err == nil {
		t.Fatal("runSteps() should fail")
	}
	if !errors.IsCode(err, errors.ErrCodeRemoteExec) {
		t.Errorf("code = %s, want %s", errors.CodeOf(err), errors.ErrCodeRemoteExec)
	}
	if !reflect.DeepEqual(ran, []string{"one", "two"}) {
		t.Errorf("ran = %v, want [one two]", ran)
	}
	if rc.UpdateRPMPath != "/root/partial.rpm" {
		t.Errorf("partial state lost: UpdateRPMPath = %q", rc.UpdateRPMPath)
	}

	var se *errors.StructuredError
	if !stderrors.As(err, &se) || se.Context["step"] != "two" {
		t.Errorf("error context = %+v, want step two", se)
	}
}

func TestDriver_RunYumInstall(t *testing.T) {
	f := newFixture()
	rpm := "redhat-virtualization-host-image-update-4.1-20170522.0.el7.noarch.rpm"
	f.session.
		OnPrefix("curl --retry 20 --remote-time -o /root/"+rpm, "").
		On(cpuModelCmd, testLSCPU).
		On("yum -y install /root/"+rpm+" > /root/yum_install.log", "").
		On(rebootCommand, "").
		On(imgbaseWCommand, "You are on redhat-virtualization-host-4.1-20170522.0+1")

	srv := cockpitServer(t, 200)
	f.driver.settings.CockpitPort = srv.port
	rc := f.runContext(StrategyYumInstall)
	rc.Host.Address = srv.host

	got, err := f.driver.Run(context.Background(), rc)
	if err != nil {
		t.Fatalf("Run() error = %v\ncalls: %v", err, f.session.Calls())
	}
	if !got.Registered() {
		t.Fatal("run context should carry the registration")
	}
	if got.UpdateRPMPath != "/root/"+rpm {
		t.Errorf("UpdateRPMPath = %q", got.UpdateRPMPath)
	}
	if !f.manager.HasHost("dell-per510-01") {
		t.Error("host was not added to the engine")
	}
	if f.session.Disconnects() != 1 {
		t.Errorf("Disconnects = %d, want 1", f.session.Disconnects())
	}
	if !f.session.Called("curl --retry 20 --remote-time -o /root/" + rpm + " http://repo.example.com/updates/" + rpm) {
		t.Errorf("download command not run: %v", f.session.Calls())
	}
}

func TestDriver_FetchUpdateRPMRequiresURL(t *testing.T) {
	f := newFixture()
	f.driver.settings.UpdateRPMURL = ""

	_, err := f.driver.fetchUpdateRPM(context.Background(), f.runContext(StrategyYumInstall))
	if !errors.IsCode(err, errors.ErrCodeInvalidRequest) {
		t.Errorf("fetchUpdateRPM() error = %v, want %s", err, errors.ErrCodeInvalidRequest)
	}
	if len(f.session.Calls()) != 0 {
		t.Errorf("no command should run, got %v", f.session.Calls())
	}
}

func TestDriver_UpdateRPMName(t *testing.T) {
	d := newFixture().driver
	rc := NewRunContext(testHost, testSource, testTarget, StrategyYumInstall)

	want := "redhat-virtualization-host-image-update-4.1-20170522.0.el7.noarch.rpm"
	if got := d.UpdateRPMName(rc); got != want {
		t.Errorf("UpdateRPMName() = %q, want %q", got, want)
	}
}
