package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/godeps/schoolsdk-go/pkg/record"
)

func newVisitsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "visits",
		Short: "Manage parent visit records",
	}
	cmd.AddCommand(newVisitsListCommand(opts))
	cmd.AddCommand(newVisitsAddCommand(opts))
	return cmd
}

func newVisitsListCommand(opts *rootOptions) *cobra.Command {
	var studentID int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List parent visits",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := buildSchool()
			if err != nil {
				return err
			}
			var visits []record.ParentVisit
			if studentID > 0 {
				visits, err = s.VisitsForStudent(cmd.Context(), studentID)
			} else {
				visits, err = s.Visits.Load(cmd.Context(), nil)
			}
			if err != nil {
				return err
			}
			if opts.JSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(visits)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTUDENT\tDATE\tREASON")
			for _, v := range visits {
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", v.ID, v.Student, v.VisitDate, v.Reason)
			}
			return w.Flush()
		},
	}
	cmd.Flags().Int64Var(&studentID, "student", 0, "only this student's visits")
	return cmd
}

func newVisitsAddCommand(_ *rootOptions) *cobra.Command {
	var v record.ParentVisit
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a parent visit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := buildSchool()
			if err != nil {
				return err
			}
			if err := s.Visits.Create(cmd.Context(), v); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "visit recorded")
			return nil
		},
	}
	cmd.Flags().Int64Var(&v.Student, "student", 0, "student id")
	cmd.Flags().StringVar(&v.VisitDate, "date", "", "visit date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&v.Reason, "reason", "", "why the parent came in")
	cmd.Flags().StringVar(&v.Notes, "notes", "", "free-form notes")
	_ = cmd.MarkFlagRequired("student")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}
