package cli

import (
	"github.com/spf13/cobra"

	"github.com/retailbridge/rms-commerce-sync/internal/application/orders"
)

// NewOrderCommand creates the order command group
func NewOrderCommand() *cobra.Command {
	orderCmd := &cobra.Command{
		Use:   "order",
		Short: "Ingest commerce orders into RMS",
	}

	orderCmd.AddCommand(newOrderIngestCommand())

	return orderCmd
}

func newOrderIngestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <order-id>",
		Short: "Ingest one commerce order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := BuildApp(configPath, nil, nil)
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Ingest.Handle(cmd.Context(), orders.IngestOrderCommand{OrderID: args[0]})
			if err != nil {
				return err
			}

			switch result.Status {
			case orders.StatusPersisted:
				cmd.Printf("order %s persisted as RMS order %d (%d lines)\n",
					result.ReferenceNumber, result.RMSOrderID, result.Lines)
			case orders.StatusDuplicate:
				cmd.Printf("order %s already ingested\n", result.ReferenceNumber)
			case orders.StatusRejected:
				cmd.Printf("order %s rejected: %s\n", result.ReferenceNumber, result.Reason)
			}
			return nil
		},
	}
}
