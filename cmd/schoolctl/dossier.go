package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newDossierCommand(opts *rootOptions) *cobra.Command {
	var statsOnly bool
	cmd := &cobra.Command{
		Use:   "dossier <student-id>",
		Short: "Show everything on file for one student",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("bad student id %q", args[0])
			}
			s, err := buildSchool()
			if err != nil {
				return err
			}
			d := s.Dossier(cmd.Context(), id)
			if opts.JSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(d)
			}

			out := cmd.OutOrStdout()
			st := d.Stats()
			fmt.Fprintf(out, "student %d: %d delays, %d absences, %d parent visits\n",
				id, st.Delays, st.Absences, st.VisitCount)
			if len(st.AbsenceDates) > 0 {
				fmt.Fprintf(out, "absent on: %s\n", strings.Join(st.AbsenceDates, ", "))
			}
			if statsOnly {
				return firstErr(d.DisciplineErr, d.VisitsErr)
			}

			for _, rec := range d.Discipline {
				fmt.Fprintf(out, "  [%s] %s %s\n", rec.RecordDate, rec.RecordType, rec.Description)
			}
			if d.DisciplineErr != nil {
				fmt.Fprintf(out, "  discipline records unavailable: %v\n", d.DisciplineErr)
			}
			for _, v := range d.Visits {
				fmt.Fprintf(out, "  [%s] visit: %s\n", v.VisitDate, v.Reason)
			}
			if d.VisitsErr != nil {
				fmt.Fprintf(out, "  parent visits unavailable: %v\n", d.VisitsErr)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&statsOnly, "stats", false, "print the summary counters only")
	return cmd
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
