package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fathom/ledgerdesk/internal/model"
	"github.com/fathom/ledgerdesk/internal/settings"
	"github.com/fathom/ledgerdesk/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "data",
	Short:   "Show session identity and local record counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer sess.close()

		fmt.Println(ui.Header("Session"))
		fmt.Printf("  Identity:    %s\n", ui.Accent(sess.id.String()))
		if sess.id.IsFallback() {
			fmt.Printf("  Mode:        %s\n", ui.Warn("local-only"))
		} else {
			fmt.Printf("  Mode:        %s\n", ui.Pass("synced"))
		}
		fmt.Printf("  Local store: %s\n", sess.cfg.LocalStore)

		st, err := settings.NewStore(sess.sync, sess.id, quietLogger())
		if err == nil {
			defer st.Close()
			if name := st.Get().BusinessName; name != "" {
				fmt.Printf("  Business:    %s\n", name)
			}
		}

		fmt.Println()
		fmt.Println(ui.Header("Collections"))
		for _, collection := range model.StandardCollections {
			records := sess.local.Load(collection)
			fmt.Printf("  %-14s %d\n", collection, len(records))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
