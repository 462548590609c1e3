// Package cli implements ehrctl, a terminal client for the disclosure
// gateway.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/triage-ai/ehr-gateway/internal/auth"
	"github.com/triage-ai/ehr-gateway/internal/server"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const envPrefix = "EHRCTL"

// Execute runs ehrctl with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the ehrctl command tree. Flags fall back to EHRCTL_*
// environment variables.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:           "ehrctl",
		Short:         "Query the EHR disclosure gateway",
		Long:          "ehrctl lists subjects, shows clinician records and asks the gateway's assistant questions answered from a minimal, de-identified context.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("addr", "localhost:50061", "gateway address (EHRCTL_ADDR)")
	flags.String("password", "", "access secret (EHRCTL_PASSWORD)")
	flags.Duration("timeout", 30*time.Second, "per-request timeout (EHRCTL_TIMEOUT)")
	for _, name := range []string{"addr", "password", "timeout"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}

	rootCmd.AddCommand(
		newSubjectsCmd(v),
		newRecordCmd(v),
		newAskCmd(v),
	)
	return rootCmd
}

func newSubjectsCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "subjects",
		Short: "List subject ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, v, func(ctx context.Context, c *server.Client) (*structpb.Struct, error) {
				return c.ListSubjects(ctx)
			})
		},
	}
}

func newRecordCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "record <subject-id>",
		Short: "Show the full record of one subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, v, func(ctx context.Context, c *server.Client) (*structpb.Struct, error) {
				return c.GetRecord(ctx, args[0])
			})
		},
	}
}

func newAskCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <subject-id> <question...>",
		Short: "Ask a question about one subject",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args[1:], " ")
			return withClient(cmd, v, func(ctx context.Context, c *server.Client) (*structpb.Struct, error) {
				return c.Ask(ctx, args[0], question)
			})
		},
	}
}

type callFunc func(ctx context.Context, c *server.Client) (*structpb.Struct, error)

func withClient(cmd *cobra.Command, v *viper.Viper, call callFunc) error {
	password := v.GetString("password")
	if password == "" {
		return fmt.Errorf("a password is required (--password or %s_PASSWORD)", envPrefix)
	}

	conn, err := grpc.NewClient(
		v.GetString("addr"),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), v.GetDuration("timeout"))
	defer cancel()
	ctx = auth.WithCredential(ctx, password)

	resp, err := call(ctx, server.NewClient(conn))
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), resp)
}

func render(w io.Writer, resp *structpb.Struct) error {
	b, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(resp)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
