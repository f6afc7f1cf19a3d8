package main

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newLoginCommand(_ *rootOptions) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and persist the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := buildSchool()
			if err != nil {
				return err
			}
			password, err := promptPassword()
			if err != nil {
				return err
			}
			if err := s.Login(cmd.Context(), username, password); err != nil {
				return err
			}
			if exp, ok := s.Session().AccessExpiry(); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s (access token expires %s)\n",
					username, exp.Format("2006-01-02 15:04"))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "user", "u", "", "backend username")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newLogoutCommand(_ *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the persisted session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := buildSchool()
			if err != nil {
				return err
			}
			if err := s.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(raw), nil
}
