package model

import "sort"

// DailyKindTotal is one (date, kind) group of the daily aggregate query.
type DailyKindTotal struct {
	Date  string          `json:"date"`
	Kind  TransactionKind `json:"kind"`
	Total int64           `json:"total"`
}

// DailyNetChart holds two series aligned on Labels.
type DailyNetChart struct {
	Labels []string `json:"labels"`
	In     []int64  `json:"in"`
	Out    []int64  `json:"out"`
}

// BuildDailyNetChart pivots (date, kind, total) groups into aligned series.
// Labels are the sorted distinct dates; a date missing one kind gets 0.
func BuildDailyNetChart(rows []DailyKindTotal) DailyNetChart {
	index := make(map[string]int)
	var labels []string
	for _, r := range rows {
		if _, ok := index[r.Date]; !ok {
			index[r.Date] = 0
			labels = append(labels, r.Date)
		}
	}
	sort.Strings(labels)
	for i, d := range labels {
		index[d] = i
	}

	chart := DailyNetChart{
		Labels: labels,
		In:     make([]int64, len(labels)),
		Out:    make([]int64, len(labels)),
	}
	if chart.Labels == nil {
		chart.Labels = []string{}
	}
	for _, r := range rows {
		i := index[r.Date]
		switch r.Kind {
		case TxIn:
			chart.In[i] += r.Total
		case TxOut:
			chart.Out[i] += r.Total
		}
	}
	return chart
}
