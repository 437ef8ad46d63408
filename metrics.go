/*
 * metrics.go, part of atomsio.
 *
 * Copyright 2024 Raul Mera <rmera{at}chemDOThelsinkiDOTfi>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package atomsio

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics is nil when the resolver has no registerer. All methods
// accept a nil receiver.
type metrics struct {
	resolutions     *prometheus.CounterVec
	failures        *prometheus.CounterVec
	backendFailures *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "atomsio_resolutions_total",
				Help: "Number of successful backend resolutions",
			},
			[]string{"operation", "backend"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "atomsio_resolution_failures_total",
				Help: "Number of failed backend resolutions",
			},
			[]string{"operation", "reason"},
		),
		backendFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "atomsio_backend_failures_total",
				Help: "Number of errors returned by backends",
			},
			[]string{"operation", "backend"},
		),
	}
	reg.MustRegister(m.resolutions, m.failures, m.backendFailures)
	return m
}

func (m *metrics) resolved(op Operation, backend string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(op.String(), backend).Inc()
}

func (m *metrics) failure(op Operation, err error) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(op.String(), failureReason(err)).Inc()
}

func (m *metrics) backendFailure(op Operation, backend string) {
	if m == nil {
		return
	}
	m.backendFailures.WithLabelValues(op.String(), backend).Inc()
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrBackendUnavailable):
		return "backend_unavailable"
	case errors.Is(err, ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, ErrEmptyPath):
		return "empty_path"
	}
	return "other"
}
