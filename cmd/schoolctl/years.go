package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newYearsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "years",
		Short: "List academic years",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := buildSchool()
			if err != nil {
				return err
			}
			years, err := s.Years.Load(cmd.Context(), nil)
			if err != nil {
				return err
			}
			if opts.JSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(years)
			}
			for _, y := range years {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", y.ID, y.YearName)
			}
			return nil
		},
	}
}

func newClassesCommand(opts *rootOptions) *cobra.Command {
	var (
		yearID int64
		grade  string
		field  string
	)
	cmd := &cobra.Command{
		Use:   "classes",
		Short: "List class options for a grade and field",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := buildSchool()
			if err != nil {
				return err
			}
			classes, err := s.ClassesByGradeField(cmd.Context(), yearID, grade, field)
			if err != nil {
				return err
			}
			if opts.JSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(classes)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tGRADE\tFIELD\tCLASS")
			for _, c := range classes {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", c.ID, c.Grade, c.Field, c.ClassNumber)
			}
			return w.Flush()
		},
	}
	cmd.Flags().Int64Var(&yearID, "year", 0, "academic year id")
	cmd.Flags().StringVar(&grade, "grade", "", "grade")
	cmd.Flags().StringVar(&field, "field", "", "study field")
	_ = cmd.MarkFlagRequired("year")
	_ = cmd.MarkFlagRequired("grade")
	return cmd
}
