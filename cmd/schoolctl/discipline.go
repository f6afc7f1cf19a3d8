package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/godeps/schoolsdk-go/pkg/record"
)

func newDisciplineCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discipline",
		Short: "Manage delay and absence records",
	}
	cmd.AddCommand(newDisciplineListCommand(opts))
	cmd.AddCommand(newDisciplineAddCommand(opts))
	cmd.AddCommand(newDisciplineRemoveCommand(opts))
	return cmd
}

func newDisciplineListCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List discipline records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := buildSchool()
			if err != nil {
				return err
			}
			records, err := s.Discipline.Load(cmd.Context(), nil)
			if err != nil {
				return err
			}
			if opts.JSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(records)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTUDENT\tTYPE\tDATE\tDESCRIPTION")
			for _, rec := range records {
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\n", rec.ID, rec.Student, rec.RecordType, rec.RecordDate, rec.Description)
			}
			return w.Flush()
		},
	}
	return cmd
}

func newDisciplineAddCommand(_ *rootOptions) *cobra.Command {
	var (
		rec     record.DisciplineRecord
		recType string
		sms     string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a delay or absence",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rec.RecordType = record.RecordType(recType)
			rec.SMSRecipient = record.SMSRecipient(sms)
			s, err := buildSchool()
			if err != nil {
				return err
			}
			if err := s.Discipline.Create(cmd.Context(), rec); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "record created")
			return nil
		},
	}
	cmd.Flags().Int64Var(&rec.Student, "student", 0, "student id")
	cmd.Flags().StringVar(&recType, "type", "", "delay or absence")
	cmd.Flags().StringVar(&rec.Description, "description", "", "what happened")
	cmd.Flags().StringVar(&rec.RecordDate, "date", "", "record date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&sms, "sms", "", "notify father or mother by SMS")
	_ = cmd.MarkFlagRequired("student")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func newDisciplineRemoveCommand(_ *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete one discipline record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("bad record id %q", args[0])
			}
			s, err := buildSchool()
			if err != nil {
				return err
			}
			if _, err := s.Discipline.Load(cmd.Context(), nil); err != nil {
				return err
			}
			if err := s.Discipline.Remove(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "record removed")
			return nil
		},
	}
}
