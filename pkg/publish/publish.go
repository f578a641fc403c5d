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

package publish

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/hostqe/upgradecheck/pkg/defaults"
	"github.com/hostqe/upgradecheck/pkg/errors"
	"github.com/hostqe/upgradecheck/pkg/report"
)

// Publisher sends a finished run somewhere outside the harness.
type Publisher interface {
	// Name identifies the sink in logs and metrics.
	Name() string

	// Publish delivers rep. It must not modify it.
	Publish(ctx context.Context, rep *report.Report) error
}

// All publishes rep to every publisher concurrently and returns the first
// error. The whole fan-out is bounded by defaults.PublishTimeout.
func All(ctx context.Context, rep *report.Report, pubs ...Publisher) error {
	if rep == nil {
		return errors.New(errors.ErrCodeInvalidRequest, "nothing to publish")
	}
	if len(pubs) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaults.PublishTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range pubs {
		g.Go(func() error {
			if err := p.Publish(gctx, rep); err != nil {
				publishTotal.WithLabelValues(p.Name(), "error").Inc()
				slog.Error("publish failed", "sink", p.Name(), "run", rep.RunID, "error", err)
				return err
			}
			publishTotal.WithLabelValues(p.Name(), "success").Inc()
			slog.Info("run published", "sink", p.Name(), "run", rep.RunID)
			return nil
		})
	}
	return g.Wait()
}
