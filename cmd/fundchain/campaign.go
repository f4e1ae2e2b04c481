package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/foxzi/fundchain/internal/action"
	"github.com/foxzi/fundchain/internal/app"
	"github.com/foxzi/fundchain/internal/campaign"
	"github.com/foxzi/fundchain/internal/eligibility"
	"github.com/foxzi/fundchain/internal/session"
)

var (
	campaignViewer      string
	campaignAccount     string
	campaignAmount      string
	campaignName        string
	campaignDescription string
	campaignTarget      string
	campaignDays        uint64
)

var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Campaign commands",
}

var campaignListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all campaigns",
	RunE:  runCampaignList,
}

var campaignShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show campaign details and permitted actions",
	Args:  cobra.ExactArgs(1),
	RunE:  runCampaignShow,
}

var campaignCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new campaign",
	Long: `Create a new campaign and wait for it to settle.

Example:
  fundchain campaign create -c config.yaml --account 0x... \
    --name "Library" --description "New books" --target 2.5 --days 30`,
	RunE: runCampaignCreate,
}

var campaignFundCmd = &cobra.Command{
	Use:   "fund <id>",
	Short: "Contribute ether to a campaign",
	Args:  cobra.ExactArgs(1),
	RunE:  runCampaignAction(eligibility.ActionFund),
}

var campaignWithdrawCmd = &cobra.Command{
	Use:   "withdraw <id>",
	Short: "Withdraw the funds of a successful campaign (creator only)",
	Args:  cobra.ExactArgs(1),
	RunE:  runCampaignAction(eligibility.ActionWithdraw),
}

var campaignRefundCmd = &cobra.Command{
	Use:   "refund <id>",
	Short: "Reclaim a contribution from a failed campaign",
	Args:  cobra.ExactArgs(1),
	RunE:  runCampaignAction(eligibility.ActionRefund),
}

var campaignCompleteCmd = &cobra.Command{
	Use:   "complete <id>",
	Short: "Mark a successful campaign as completed (creator only)",
	Args:  cobra.ExactArgs(1),
	RunE:  runCampaignAction(eligibility.ActionComplete),
}

func init() {
	campaignListCmd.Flags().StringVar(&campaignViewer, "viewer", "", "Evaluate permitted actions for this account")
	campaignShowCmd.Flags().StringVar(&campaignViewer, "viewer", "", "Evaluate permitted actions for this account")

	campaignCreateCmd.Flags().StringVar(&campaignName, "name", "", "Campaign name")
	campaignCreateCmd.Flags().StringVar(&campaignDescription, "description", "", "Campaign description")
	campaignCreateCmd.Flags().StringVar(&campaignTarget, "target", "", "Funding target in ether (e.g. 2.5)")
	campaignCreateCmd.Flags().Uint64Var(&campaignDays, "days", 30, "Days until the deadline")
	campaignCreateCmd.MarkFlagRequired("name")
	campaignCreateCmd.MarkFlagRequired("description")
	campaignCreateCmd.MarkFlagRequired("target")

	campaignFundCmd.Flags().StringVar(&campaignAmount, "amount", "", "Amount in ether (e.g. 0.5)")
	campaignFundCmd.MarkFlagRequired("amount")

	for _, c := range []*cobra.Command{campaignCreateCmd, campaignFundCmd, campaignWithdrawCmd, campaignRefundCmd, campaignCompleteCmd} {
		c.Flags().StringVar(&campaignAccount, "account", "", "Signing account address from the keystore")
		c.MarkFlagRequired("account")
	}

	campaignCmd.AddCommand(
		campaignListCmd,
		campaignShowCmd,
		campaignCreateCmd,
		campaignFundCmd,
		campaignWithdrawCmd,
		campaignRefundCmd,
		campaignCompleteCmd,
	)
	rootCmd.AddCommand(campaignCmd)
}

func openServices(ctx context.Context) (*app.Services, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	services, err := app.NewServices(ctx, cfg, app.ServicesOptions{JournalOptional: true}, cliLogger())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ledger: %w", err)
	}
	return services, nil
}

func parseAddress(flag, value string) (common.Address, error) {
	if value == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("--%s must be a hex address: %s", flag, value)
	}
	return common.HexToAddress(value), nil
}

func parseCampaignID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid campaign id: %s", s)
	}
	return id, nil
}

func runCampaignList(cmd *cobra.Command, args []string) error {
	viewer, err := parseAddress("viewer", campaignViewer)
	if err != nil {
		return err
	}

	ctx := context.Background()
	services, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer services.Close()

	views, err := services.Orchestrator.List(ctx, viewer)
	if err != nil {
		return err
	}

	if len(views) == 0 {
		fmt.Println("No campaigns")
		return nil
	}

	printCampaignTable(os.Stdout, views)
	fmt.Printf("\nTotal: %d campaigns\n", len(views))

	return nil
}

func runCampaignShow(cmd *cobra.Command, args []string) error {
	id, err := parseCampaignID(args[0])
	if err != nil {
		return err
	}
	viewer, err := parseAddress("viewer", campaignViewer)
	if err != nil {
		return err
	}

	ctx := context.Background()
	services, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer services.Close()

	view, err := services.Orchestrator.View(ctx, id, viewer)
	if err != nil {
		return err
	}

	printCampaign(os.Stdout, view)
	return nil
}

func runCampaignCreate(cmd *cobra.Command, args []string) error {
	target, err := campaign.ParseEther(campaignTarget)
	if err != nil {
		return fmt.Errorf("invalid --target: %w", err)
	}

	return withSession(func(ctx context.Context, services *app.Services, sess *session.Session) error {
		fmt.Printf("Creating campaign %q...\n", campaignName)

		res, err := services.Orchestrator.Create(ctx, sess, action.CreateRequest{
			Name:         campaignName,
			Description:  campaignDescription,
			Target:       target,
			DeadlineDays: campaignDays,
		})
		if err != nil {
			return describeFailure(err)
		}

		printSettled(os.Stdout, action.ActionCreate, res)
		return nil
	})
}

func runCampaignAction(act eligibility.Action) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		id, err := parseCampaignID(args[0])
		if err != nil {
			return err
		}

		var amount *big.Int
		if act == eligibility.ActionFund {
			if amount, err = campaign.ParseEther(campaignAmount); err != nil {
				return fmt.Errorf("invalid --amount: %w", err)
			}
		}

		return withSession(func(ctx context.Context, services *app.Services, sess *session.Session) error {
			fmt.Printf("Submitting %s on campaign %d...\n", act, id)

			res, err := services.Orchestrator.Perform(ctx, sess, act, id, amount)
			if err != nil {
				return describeFailure(err)
			}

			printSettled(os.Stdout, string(act), res)
			return nil
		})
	}
}

// withSession unlocks --account, runs fn and disconnects. SIGINT cancels
// the context, which abandons a pending wait
func withSession(fn func(ctx context.Context, services *app.Services, sess *session.Session) error) error {
	account, err := parseAddress("account", campaignAccount)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	services, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer services.Close()

	pass, err := readPassphrase(fmt.Sprintf("Passphrase for %s: ", account.Hex()))
	if err != nil {
		return err
	}

	sess, err := services.Sessions.Connect(account, pass)
	if err != nil {
		return err
	}
	defer services.Sessions.Disconnect(sess.ID)

	return fn(ctx, services, sess)
}

func describeFailure(err error) error {
	var ae *action.Error
	if !errors.As(err, &ae) {
		return err
	}

	if ae.Abandoned {
		fmt.Printf("Stopped waiting for transaction %s\n", ae.TxHash)
		fmt.Println("It may still settle; check it with 'fundchain campaign show'.")
	}
	return err
}

func printSettled(w io.Writer, act string, res *action.Result) {
	fmt.Fprintf(w, "Settled %s in block %d\n", act, res.BlockNumber)
	fmt.Fprintf(w, "Transaction: %s\n\n", res.TxHash)

	if res.Campaign == nil {
		if res.Err != nil {
			fmt.Fprintf(w, "Could not refresh campaign: %v\n", res.Err)
		}
		return
	}
	printCampaign(w, &res.View)
}

// truncate shortens s to n runes, marking the cut with "..."
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func printCampaignTable(out io.Writer, views []*action.View) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tRAISED\tTARGET\tPROGRESS\tTIME LEFT\tACTIONS")
	fmt.Fprintln(w, "--\t----\t------\t------\t------\t--------\t---------\t-------")

	for _, v := range views {
		if v.Campaign == nil {
			fmt.Fprintf(w, "%d\t-\tunavailable\t-\t-\t-\t-\t%v\n", v.ID, v.Err)
			continue
		}

		c := v.Campaign
		name := truncate(c.Name, 30)

		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s%%\t%s\t%s\n",
			c.ID,
			name,
			c.Status(),
			campaign.FormatEther(c.AmountRaised),
			campaign.FormatEther(c.Target),
			c.ProgressString(),
			c.TimeLeft,
			permitted(v.Flags),
		)
	}

	w.Flush()
}

func printCampaign(w io.Writer, v *action.View) {
	c := v.Campaign

	fmt.Fprintf(w, "Campaign: %d\n\n", c.ID)
	fmt.Fprintf(w, "Name:        %s\n", c.Name)
	fmt.Fprintf(w, "Description: %s\n", c.Description)
	fmt.Fprintf(w, "Creator:     %s\n", c.Creator.Hex())
	fmt.Fprintf(w, "Status:      %s\n", c.Status())
	fmt.Fprintf(w, "Target:      %s ETH\n", campaign.FormatEther(c.Target))
	fmt.Fprintf(w, "Raised:      %s ETH (%s%%)\n", campaign.FormatEther(c.AmountRaised), c.ProgressString())
	fmt.Fprintf(w, "Withdrawn:   %s ETH\n", campaign.FormatEther(c.AmountWithdrawn))
	fmt.Fprintf(w, "Refunded:    %s ETH\n", campaign.FormatEther(c.AmountRefunded))
	fmt.Fprintf(w, "Deadline:    %s (%s)\n", time.Unix(c.Deadline, 0).UTC().Format(time.RFC3339), c.TimeLeft)

	if v.Contribution != nil {
		fmt.Fprintf(w, "Contributed: %s ETH\n", campaign.FormatEther(v.Contribution))
	}
	fmt.Fprintf(w, "\nPermitted:   %s\n", permitted(v.Flags))
}

func permitted(f eligibility.Flags) string {
	var names []string
	for _, a := range eligibility.Actions {
		if f.Allows(a) {
			names = append(names, string(a))
		}
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ",")
}
