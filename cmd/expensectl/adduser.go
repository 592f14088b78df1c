package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"expensebook/internal/auth"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func adduserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a user account",
		Long: `Create a user account. When --password is omitted the password is
read from the terminal without echo, or from the first line of stdin.`,
		Args: cobra.NoArgs,
		RunE: runAdduser,
	}

	cmd.Flags().String("user", "", "username")
	cmd.Flags().String("password", "", "password (optional, will prompt if omitted)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runAdduser(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true
	username, _ := cmd.Flags().GetString("user")
	password, _ := cmd.Flags().GetString("password")
	stdout := cmd.OutOrStdout()

	if password == "" {
		fmt.Fprint(stdout, "Password: ")
		var err error
		password, err = readPassword(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(stdout)
	}

	if strings.TrimSpace(password) == "" {
		return errors.New("password cannot be empty")
	}

	store, cfg, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	authSvc := auth.NewService(store, auth.NewSigner([]byte(cfg.SessionSecret)))
	user, err := authSvc.Register(cmd.Context(), username, password)
	if err != nil {
		if errors.Is(err, auth.ErrDuplicateUsername) {
			return fmt.Errorf("user %s already exists", username)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(stdout, "User %s created successfully with ID %d\n", user.Username, user.ID)
	return nil
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// Non-terminal input such as pipes
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
