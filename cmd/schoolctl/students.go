package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/godeps/schoolsdk-go/pkg/record"
)

func newStudentsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "students",
		Short: "Manage the student roster",
	}
	cmd.AddCommand(newStudentsListCommand(opts))
	cmd.AddCommand(newStudentsAddCommand(opts))
	cmd.AddCommand(newStudentsRemoveCommand(opts))
	cmd.AddCommand(newStudentsImportCommand(opts))
	return cmd
}

func newStudentsListCommand(opts *rootOptions) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List students, optionally filtered by a search term",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := buildSchool()
			if err != nil {
				return err
			}
			if _, err := s.Students.Load(cmd.Context(), nil); err != nil {
				return err
			}
			students := s.Students.Search(search)
			if opts.JSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(students)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tNATIONAL ID\tCLASS")
			for _, st := range students {
				class := ""
				if st.Class != nil {
					class = st.Class.Grade + "/" + st.Class.ClassNumber
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", st.ID, st.FullName(), st.NationalID, class)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "substring match on name or national id")
	return cmd
}

func newStudentsAddCommand(_ *rootOptions) *cobra.Command {
	var st record.Student
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create one student",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := buildSchool()
			if err != nil {
				return err
			}
			if err := s.Students.Create(cmd.Context(), st); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "student created")
			return nil
		},
	}
	cmd.Flags().StringVar(&st.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&st.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&st.NationalID, "national-id", "", "national id")
	cmd.Flags().StringVar(&st.FatherName, "father-name", "", "father's name")
	cmd.Flags().StringVar(&st.FatherPhone, "father-phone", "", "father's phone")
	cmd.Flags().StringVar(&st.MotherPhone, "mother-phone", "", "mother's phone")
	cmd.Flags().Int64Var(&st.ClassID, "class", 0, "class id")
	return cmd
}

func newStudentsRemoveCommand(_ *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete one student",
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
			if _, err := s.Students.Load(cmd.Context(), nil); err != nil {
				return err
			}
			if err := s.Students.Remove(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "student removed")
			return nil
		},
	}
}

func newStudentsImportCommand(_ *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <spreadsheet.xlsx>",
		Short: "Bulk-create students from a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			s, err := buildSchool()
			if err != nil {
				return err
			}
			res, err := s.ImportStudents(cmd.Context(), args[0], f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "imported %d of %d rows\n", res.Results.Success, res.Results.Total)
			for _, rowErr := range res.Results.Errors {
				fmt.Fprintf(out, "  row %d: %s\n", rowErr.Row, rowErr.Error)
			}
			return nil
		},
	}
}
