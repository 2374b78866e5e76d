package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/soyeahso/concierge/internal/google"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize execution backends",
	}
	cmd.AddCommand(newAuthGoogleCmd())
	return cmd
}

func newAuthGoogleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "google",
		Short: "Authorize Google Calendar and Gmail access",
		Long: "Opens the OAuth consent flow for the client secret at google.credentialsFile\n" +
			"and stores the resulting token at google.tokenFile.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			oc, err := google.LoadOAuthConfig(cfg.Google.CredentialsFile)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			state := uuid.NewString()
			fmt.Fprintf(out, "Open this link in your browser and approve access:\n\n  %s\n\n", google.AuthCodeURL(oc, state))

			code, err := readAuthCode(cmd.InOrStdin(), out)
			if err != nil {
				return err
			}
			tok, err := google.Exchange(context.Background(), oc, code)
			if err != nil {
				return err
			}
			if err := google.SaveToken(cfg.Google.TokenFile, tok); err != nil {
				return err
			}
			log.Info().Str("path", cfg.Google.TokenFile).Msg("google token saved")
			fmt.Fprintf(out, "Token saved to %s\n", cfg.Google.TokenFile)
			return nil
		},
	}
}

// readAuthCode prompts for the authorization code. A pasted redirect URL
// is accepted too; the code is taken from its query string.
func readAuthCode(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Authorization code: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	code := strings.TrimSpace(line)
	if _, q, ok := strings.Cut(code, "code="); ok {
		code, _, _ = strings.Cut(q, "&")
	}
	if code == "" {
		return "", fmt.Errorf("no authorization code entered")
	}
	return code, nil
}
