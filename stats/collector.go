/*
 * Copyright (c) 2024. Shuojiang Liu.
 * Licensed under the MIT License (the "License");
 * you may not use this file except in compliance with the License.
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package stats

import "github.com/prometheus/client_golang/prometheus"

// Collector exposes a Statistic as prometheus metrics.
type Collector struct {
	statistic *Statistic

	queryNumDesc      *prometheus.Desc
	writeQueryNumDesc *prometheus.Desc
	lastSecQpsDesc    *prometheus.Desc
	connectionsDesc   *prometheus.Desc
	execCountDesc     *prometheus.Desc
}

func NewCollector(statistic *Statistic, namespace string) *Collector {
	return &Collector{
		statistic: statistic,
		queryNumDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "query_total"),
			"Total number of queries per table.",
			[]string{"db"}, nil,
		),
		writeQueryNumDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "write_query_total"),
			"Total number of write queries per table.",
			[]string{"db"}, nil,
		),
		lastSecQpsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "last_sec_qps"),
			"Queries per second over the last tick per table.",
			[]string{"db"}, nil,
		),
		connectionsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "accumulative_connections_total"),
			"Total number of accepted connections.",
			nil, nil,
		),
		execCountDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "command_exec_total"),
			"Total number of executions per command.",
			[]string{"command"}, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.queryNumDesc
	ch <- c.writeQueryNumDesc
	ch <- c.lastSecQpsDesc
	ch <- c.connectionsDesc
	ch <- c.execCountDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for dbName, stat := range c.statistic.AllDBStat() {
		ch <- prometheus.MustNewConstMetric(c.queryNumDesc, prometheus.CounterValue,
			float64(stat.QueryNum.Load()), dbName)
		ch <- prometheus.MustNewConstMetric(c.writeQueryNumDesc, prometheus.CounterValue,
			float64(stat.WriteQueryNum.Load()), dbName)
		ch <- prometheus.MustNewConstMetric(c.lastSecQpsDesc, prometheus.GaugeValue,
			float64(stat.LastSecQueryNum.Load()), dbName)
	}

	ch <- prometheus.MustNewConstMetric(c.connectionsDesc, prometheus.CounterValue,
		float64(c.statistic.ServerStat.AccumulativeConnections.Load()))

	for command, count := range c.statistic.ServerStat.ExecCount() {
		ch <- prometheus.MustNewConstMetric(c.execCountDesc, prometheus.CounterValue,
			float64(count), command)
	}
}
