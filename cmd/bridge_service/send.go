package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/aradsms/smsbridge/internal/bridge_service/domain"
	"github.com/aradsms/smsbridge/internal/bridge_service/provider"
	"github.com/aradsms/smsbridge/internal/bridge_service/provider/brck"
)

func sendCmd() *cobra.Command {
	var (
		providerKey string
		internalID  string
		to          string
		from        string
		text        string
		media       []string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one outbound message through a carrier",
		Long: `Records an outbound message, sends it once through the chosen carrier and
prints the delivery outcome as JSON. The message is marked delivered only on
a 2xx answer. Failed sends are not retried.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if internalID == "" {
				internalID = uuid.NewString()
			}
			msg, err := domain.NewOutboundMessage(internalID, to, from, text, media...)
			if err != nil {
				return err
			}

			rt, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			adapter, err := rt.registry.Get(providerKey)
			if err != nil {
				return err
			}
			if err := rt.repo.CreateOutbound(ctx, adapter.Info().Key, msg); err != nil {
				return err
			}

			outcome, sendErr := provider.Send(ctx, adapter, msg)
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(struct {
				InternalID string `json:"internal_id"`
				domain.DeliveryOutcome
				Retryable bool `json:"retryable"`
			}{msg.InternalID, outcome, domain.Retryable(sendErr)})

			if sendErr != nil {
				var authErr *domain.AuthError
				if errors.As(sendErr, &authErr) {
					return fmt.Errorf("check %s credentials: %w", adapter.Info().Key, sendErr)
				}
				return sendErr
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&providerKey, "provider", "p", brck.ProviderKey, "carrier to send through")
	cmd.Flags().StringVar(&internalID, "id", "", "internal message id (generated when empty)")
	cmd.Flags().StringVar(&to, "to", "", "recipient number")
	cmd.Flags().StringVar(&from, "from", "", "sender number")
	cmd.Flags().StringVarP(&text, "text", "t", "", "message text")
	cmd.Flags().StringSliceVarP(&media, "media", "m", nil, "media URL (repeatable)")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func providersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List supported carriers and their configuration fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			a := brck.New(brck.Options{})
			return enc.Encode(struct {
				provider.Info
				Config domain.ConfigSchema `json:"config"`
			}{a.Info(), a.ConfigSchema()})
		},
	}
}
