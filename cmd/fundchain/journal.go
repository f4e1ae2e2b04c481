package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/foxzi/fundchain/internal/journal"
)

var (
	journalListStatus   string
	journalListLimit    int
	journalListAccount  string
	journalListCampaign uint64
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Action journal commands",
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List journaled writes, newest first",
	RunE:  runJournalList,
}

var journalStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show journal statistics",
	RunE:  runJournalStats,
}

func init() {
	journalListCmd.Flags().StringVar(&journalListStatus, "status", "", "Filter by status (submitted, settled, reverted, rejected, abandoned)")
	journalListCmd.Flags().IntVar(&journalListLimit, "limit", 50, "Maximum number of entries to show")
	journalListCmd.Flags().StringVar(&journalListAccount, "account", "", "Filter by account address")
	journalListCmd.Flags().Uint64Var(&journalListCampaign, "campaign", 0, "Filter by campaign id")

	journalCmd.AddCommand(journalListCmd, journalStatsCmd)
	rootCmd.AddCommand(journalCmd)
}

func openJournal() (*journal.BoltStorage, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	storage, err := journal.NewBoltStorage(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return storage, nil
}

func runJournalList(cmd *cobra.Command, args []string) error {
	account, err := parseAddress("account", journalListAccount)
	if err != nil {
		return err
	}

	storage, err := openJournal()
	if err != nil {
		return err
	}
	defer storage.Close()

	filter := journal.ListFilter{
		Status:     journal.Status(journalListStatus),
		CampaignID: journalListCampaign,
		Limit:      journalListLimit,
	}
	if journalListAccount != "" {
		filter.Account = account.Hex()
	}

	entries, err := storage.List(context.Background(), filter)
	if err != nil {
		return fmt.Errorf("failed to list journal: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("Journal is empty")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tACTION\tCAMPAIGN\tACCOUNT\tSTATUS\tTX")
	fmt.Fprintln(w, "-------\t------\t--------\t-------\t------\t--")

	for _, e := range entries {
		campaignID := "-"
		if e.CampaignID != 0 {
			campaignID = fmt.Sprintf("%d", e.CampaignID)
		}
		tx := e.TxHash
		if tx == "" {
			tx = "-"
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04"),
			e.Action,
			campaignID,
			e.Account,
			e.Status,
			tx,
		)
	}

	w.Flush()
	fmt.Printf("\nTotal: %d entries\n", len(entries))

	return nil
}

func runJournalStats(cmd *cobra.Command, args []string) error {
	storage, err := openJournal()
	if err != nil {
		return err
	}
	defer storage.Close()

	stats, err := storage.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	fmt.Println("Journal Statistics")
	fmt.Println("==================")
	fmt.Printf("Submitted: %d\n", stats.Submitted)
	fmt.Printf("Settled:   %d\n", stats.Settled)
	fmt.Printf("Reverted:  %d\n", stats.Reverted)
	fmt.Printf("Rejected:  %d\n", stats.Rejected)
	fmt.Printf("Abandoned: %d\n", stats.Abandoned)
	fmt.Printf("Total:     %d\n", stats.Total)
	fmt.Printf("\nAs of %s\n", time.Now().Format(time.RFC3339))

	return nil
}
