package main

import (
	"fmt"
	"io"

	"github.com/urbansense/canopysim/pkg/sim"
	"github.com/urbansense/canopysim/pkg/validation"
)

func printValidationReport(w io.Writer, r *validation.Report) {
	if len(r.Errors) > 0 {
		fmt.Fprintf(w, "ERRORS (%d):\n", len(r.Errors))
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  [%s] %s\n", e.Level, e.Message)
			if e.Path != "" {
				fmt.Fprintf(w, "    -> %s = %v\n", e.Path, e.ActualValue)
			}
			if e.Expected != "" {
				fmt.Fprintf(w, "    expected: %s\n", e.Expected)
			}
			for _, s := range e.Suggestions {
				fmt.Fprintf(w, "    * %s\n", s)
			}
		}
		fmt.Fprintln(w)
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintf(w, "WARNINGS (%d):\n", len(r.Warnings))
		for _, wr := range r.Warnings {
			fmt.Fprintf(w, "  [%s] %s\n", wr.Level, wr.Message)
			if wr.Path != "" {
				fmt.Fprintf(w, "    -> %s = %v\n", wr.Path, wr.ActualValue)
			}
			if wr.Expected != "" {
				fmt.Fprintf(w, "    expected: %s\n", wr.Expected)
			}
		}
		fmt.Fprintln(w)
	}

	if len(r.Info) > 0 {
		fmt.Fprintf(w, "INFO (%d):\n", len(r.Info))
		for _, i := range r.Info {
			fmt.Fprintf(w, "  [%s] %s\n", i.Level, i.Message)
		}
		fmt.Fprintln(w)
	}

	if r.Valid {
		fmt.Fprintf(w, "Result: VALID (%s)\n", r.Summary)
	} else {
		fmt.Fprintf(w, "Result: INVALID (%s)\n", r.Summary)
	}
}

type checkRow struct {
	seed   uint64
	counts map[sim.Status]int
	kpis   sim.KPIs
	cellR  float64
	valid  bool
}

func printCheckTable(w io.Writer, rows []checkRow) {
	fmt.Fprintf(w, "%-20s %4s %4s %5s %7s %7s %7s %8s\n",
		"Seed", "OK", "Busy", "Alert", "AvgOcc", "AvgAQI", "Heat", "Cell r")
	fmt.Fprintf(w, "%-20s %4s %4s %5s %7s %7s %7s %8s\n",
		"--------------------", "----", "----", "-----", "-------", "-------", "-------", "--------")
	for _, r := range rows {
		mark := ""
		if !r.valid {
			mark = "  FAIL"
		}
		fmt.Fprintf(w, "%-20d %4d %4d %5d %7d %7d %7d %8.3f%s\n",
			r.seed, r.counts[sim.StatusOK], r.counts[sim.StatusBusy], r.counts[sim.StatusAlert],
			r.kpis.AvgOcc, r.kpis.AvgAQI, r.kpis.HeatIndex, r.cellR, mark)
	}
}
