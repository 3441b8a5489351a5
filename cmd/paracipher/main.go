package main

import (
	"fmt"
	"os"
	"time"

	"paracipher-go/internal/app"
	"paracipher-go/internal/config"
	"paracipher-go/internal/encryption"
	"paracipher-go/internal/model"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an EngineApp. The caller must defer
// a.Close(). operation identifies the CLI command being run (e.g.
// "BuyCoverage", "FileClaim").
func newApp(operation, parameters string) (*app.EngineApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewEngineApp(cfg, operation, parameters)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// passphraseFromFlagOrEnv reads --passphrase, falling back to the
// PARACIPHER_PASSPHRASE environment variable.
func passphraseFromFlagOrEnv(cmd *cobra.Command) (string, error) {
	passphrase, _ := cmd.Flags().GetString("passphrase")
	if passphrase == "" {
		passphrase = os.Getenv("PARACIPHER_PASSPHRASE")
	}
	if passphrase == "" {
		return "", fmt.Errorf("passphrase required: use --passphrase or PARACIPHER_PASSPHRASE")
	}
	return passphrase, nil
}

// evidenceFromFlags assembles an evidence bundle from claim file flags.
// Validation happens in the engine, not here.
func evidenceFromFlags(cmd *cobra.Command) model.ClaimEvidence {
	photo, _ := cmd.Flags().GetString("photo")
	lat, _ := cmd.Flags().GetString("lat")
	lon, _ := cmd.Flags().GetString("lon")
	timestamp, _ := cmd.Flags().GetInt64("timestamp")
	policeReport, _ := cmd.Flags().GetString("police-report")
	description, _ := cmd.Flags().GetString("description")

	return model.ClaimEvidence{
		PhotoRef:          photo,
		GPSLatitude:       lat,
		GPSLongitude:      lon,
		AccidentTimestamp: timestamp,
		PoliceReportID:    policeReport,
		Description:       description,
	}
}

var rootCmd = &cobra.Command{
	Use:   "paracipher",
	Short: "Parametric micro-insurance settlement engine",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		// Generate a new owner identity
		ownerID := uuid.New().String()

		cfg := config.NewConfig(ownerID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Owner ID: %s\n", ownerID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		fmt.Println("Run 'paracipher config keys' to generate the sealing key pair.")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Owner ID: %s\n", cfg.OwnerID)
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:  %s\n", cfg.LogDir)
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Generate the evidence sealing key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		passphrase, err := passphraseFromFlagOrEnv(cmd)
		if err != nil {
			return err
		}

		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
		if err != nil {
			return fmt.Errorf("creating encryptor: %w", err)
		}
		if enc.IsConfigured() {
			return fmt.Errorf("key pair already exists")
		}
		if err := enc.Setup(passphrase); err != nil {
			return fmt.Errorf("generating key pair: %w", err)
		}

		fmt.Println("Sealing key pair generated.")
		return nil
	},
}

// coverage command
var coverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: "Manage coverage policies",
}

var coverageBuyCmd = &cobra.Command{
	Use:   "buy IDENTITY",
	Short: "Purchase coverage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		identity := args[0]
		amount, _ := cmd.Flags().GetInt64("amount")

		a, err := newApp("BuyCoverage", identity)
		if err != nil {
			return err
		}
		defer a.Close()

		if amount == 0 {
			amount = a.Terms().PremiumAmount
		}

		policy, err := a.BuyCoverage(identity, amount)
		if err != nil {
			return fmt.Errorf("buying coverage: %w", err)
		}

		fmt.Printf("Coverage issued for %s\n", policy.Holder)
		fmt.Printf("Premium:  %d\n", policy.PremiumPaid)
		fmt.Printf("Coverage: %d\n", policy.CoverageAmount)
		fmt.Printf("Expires:  %s\n", policy.EndTime.Format("2006-01-02 15:04:05"))
		return nil
	},
}

var coverageStatusCmd = &cobra.Command{
	Use:   "status IDENTITY",
	Short: "View coverage status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		identity := args[0]

		a, err := newApp("CheckCoverage", identity)
		if err != nil {
			return err
		}
		defer a.Close()

		status, err := a.CheckCoverage(identity)
		if err != nil {
			return err
		}

		if !status.IsActive {
			fmt.Printf("%s has no active coverage.\n", identity)
			return nil
		}
		fmt.Printf("Coverage:  %d\n", status.CoverageAmount)
		fmt.Printf("Remaining: %s\n", status.TimeRemaining.Truncate(time.Second))
		return nil
	},
}

var coverageShowCmd = &cobra.Command{
	Use:   "show IDENTITY",
	Short: "View full policy details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		identity := args[0]

		a, err := newApp("GetPolicyDetails", identity)
		if err != nil {
			return err
		}
		defer a.Close()

		policy, remaining, err := a.GetPolicyDetails(identity)
		if err != nil {
			return err
		}
		if policy == nil {
			fmt.Printf("%s never bought coverage.\n", identity)
			return nil
		}

		fmt.Printf("Holder:    %s\n", policy.Holder)
		fmt.Printf("Premium:   %d\n", policy.PremiumPaid)
		fmt.Printf("Coverage:  %d\n", policy.CoverageAmount)
		fmt.Printf("Start:     %s\n", policy.StartTime.Format("2006-01-02 15:04:05"))
		fmt.Printf("End:       %s\n", policy.EndTime.Format("2006-01-02 15:04:05"))
		fmt.Printf("Active:    %t\n", policy.IsActive)
		fmt.Printf("Claimed:   %t\n", policy.HasClaimed)
		fmt.Printf("Remaining: %s\n", remaining.Truncate(time.Second))
		return nil
	},
}

// claim command
var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "File and manage claims",
}

var claimFileCmd = &cobra.Command{
	Use:   "file IDENTITY",
	Short: "File an evidence-backed claim",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		identity := args[0]

		evidence := evidenceFromFlags(cmd)
		notes, _ := cmd.Flags().GetString("notes")

		a, err := newApp("FileClaim", identity)
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.FileClaim(identity, evidence, notes)
		if err != nil {
			return fmt.Errorf("filing claim: %w", err)
		}

		fmt.Printf("Claim approved for %s\n", identity)
		fmt.Printf("Payout: %d\n", result.Amount)
		fmt.Printf("Tx:     %s\n", result.TxRef)
		return nil
	},
}

var claimManualCmd = &cobra.Command{
	Use:   "manual IDENTITY",
	Short: "File a claim for manual review",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		identity := args[0]
		notes, _ := cmd.Flags().GetString("notes")

		a, err := newApp("FileManualClaim", identity)
		if err != nil {
			return err
		}
		defer a.Close()

		claim, err := a.FileManualClaim(identity, notes)
		if err != nil {
			return fmt.Errorf("filing claim: %w", err)
		}

		fmt.Printf("Claim filed for %s, status: %s\n", identity, claim.Status)
		return nil
	},
}

var claimApproveCmd = &cobra.Command{
	Use:   "approve IDENTITY",
	Short: "Approve a pending claim (owner only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		identity := args[0]

		a, err := newApp("ApproveClaim", identity)
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.ApproveClaim(identity)
		if err != nil {
			return fmt.Errorf("approving claim: %w", err)
		}

		fmt.Printf("Claim approved for %s\n", identity)
		fmt.Printf("Payout: %d\n", result.Amount)
		fmt.Printf("Tx:     %s\n", result.TxRef)
		return nil
	},
}

var claimRejectCmd = &cobra.Command{
	Use:   "reject IDENTITY",
	Short: "Reject a pending claim (owner only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		identity := args[0]
		reason, _ := cmd.Flags().GetString("reason")

		a, err := newApp("RejectClaim", identity)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.RejectClaim(identity, reason); err != nil {
			return fmt.Errorf("rejecting claim: %w", err)
		}

		fmt.Printf("Claim rejected for %s\n", identity)
		return nil
	},
}

var claimStatusCmd = &cobra.Command{
	Use:   "status IDENTITY",
	Short: "View claim status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		identity := args[0]

		a, err := newApp("GetClaimStatus", identity)
		if err != nil {
			return err
		}
		defer a.Close()

		claim, err := a.GetClaimStatus(identity)
		if err != nil {
			return err
		}
		if claim == nil {
			fmt.Printf("%s never filed a claim.\n", identity)
			return nil
		}

		fmt.Printf("Status:    %s\n", claim.Status)
		fmt.Printf("Requested: %d\n", claim.RequestedAmount)
		fmt.Printf("Filed:     %s\n", claim.FiledAt.Format("2006-01-02 15:04:05"))
		if claim.ProcessedAt != nil {
			fmt.Printf("Processed: %s\n", claim.ProcessedAt.Format("2006-01-02 15:04:05"))
		}
		if claim.Notes != "" {
			fmt.Printf("Notes:     %s\n", claim.Notes)
		}
		return nil
	},
}

var claimEvidenceCmd = &cobra.Command{
	Use:   "evidence IDENTITY",
	Short: "View archived claim evidence",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		identity := args[0]
		passphrase, err := passphraseFromFlagOrEnv(cmd)
		if err != nil {
			return err
		}

		a, err := newApp("ShowEvidence", identity)
		if err != nil {
			return err
		}
		defer a.Close()

		evidence, err := a.ShowEvidence(identity, passphrase)
		if err != nil {
			return fmt.Errorf("retrieving evidence: %w", err)
		}
		if evidence == nil {
			fmt.Printf("No evidence recorded for %s.\n", identity)
			return nil
		}

		fmt.Printf("Photo:       %s\n", evidence.PhotoRef)
		fmt.Printf("GPS:         %s, %s\n", evidence.GPSLatitude, evidence.GPSLongitude)
		fmt.Printf("Accident:    %s\n", time.Unix(evidence.AccidentTimestamp, 0).UTC().Format("2006-01-02 15:04:05"))
		if evidence.PoliceReportID != "" {
			fmt.Printf("Police ref:  %s\n", evidence.PoliceReportID)
		}
		fmt.Printf("Description: %s\n", evidence.Description)
		return nil
	},
}

// reputation command
var reputationCmd = &cobra.Command{
	Use:   "reputation",
	Short: "Manage reputation scores",
}

var reputationSafeDayCmd = &cobra.Command{
	Use:   "safe-day IDENTITY",
	Short: "Credit a claim-free day (owner only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		identity := args[0]

		a, err := newApp("AddSafeDay", identity)
		if err != nil {
			return err
		}
		defer a.Close()

		rep, err := a.AddSafeDay(identity)
		if err != nil {
			return fmt.Errorf("crediting safe day: %w", err)
		}

		fmt.Printf("Safe day recorded for %s, score: %d\n", identity, rep.Score)
		return nil
	},
}

var reputationScoreCmd = &cobra.Command{
	Use:   "score IDENTITY",
	Short: "View reputation score and discount",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		identity := args[0]

		a, err := newApp("GetScore", identity)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.GetScore(identity)
		if err != nil {
			return err
		}
		premium, err := a.GetDiscountedPremium(identity)
		if err != nil {
			return err
		}

		fmt.Printf("Score:        %d\n", report.Score)
		fmt.Printf("Safe days:    %d\n", report.SafeDays)
		fmt.Printf("Total claims: %d\n", report.TotalClaims)
		fmt.Printf("Discount:     %d%%\n", report.Discount)
		fmt.Printf("Premium:      %d\n", premium)
		return nil
	},
}

// treasury command
var treasuryCmd = &cobra.Command{
	Use:   "treasury",
	Short: "Manage the treasury",
}

var treasuryFundCmd = &cobra.Command{
	Use:   "fund AMOUNT",
	Short: "Fund the claims pool (owner only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var amount int64
		if _, err := fmt.Sscanf(args[0], "%d", &amount); err != nil {
			return fmt.Errorf("invalid amount %q", args[0])
		}

		a, err := newApp("FundPool", args[0])
		if err != nil {
			return err
		}
		defer a.Close()

		transfer, err := a.FundPool(amount)
		if err != nil {
			return fmt.Errorf("funding pool: %w", err)
		}

		fmt.Printf("Pool funded with %d, tx: %s\n", transfer.Amount, transfer.Ref)
		return nil
	},
}

var treasuryWithdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Withdraw accumulated premiums (owner only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("WithdrawPremiums", "")
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.WithdrawPremiums()
		if err != nil {
			return fmt.Errorf("withdrawing premiums: %w", err)
		}

		if result.TxRef == "" {
			fmt.Println("No premiums to withdraw.")
			return nil
		}
		fmt.Printf("Withdrew %d, tx: %s\n", result.Amount, result.TxRef)
		return nil
	},
}

var treasuryStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "View treasury balances",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("GetPoolStatus", "")
		if err != nil {
			return err
		}
		defer a.Close()

		status, err := a.GetPoolStatus()
		if err != nil {
			return err
		}

		fmt.Printf("Premium balance:    %d\n", status.PremiumBalance)
		fmt.Printf("Pool balance:       %d\n", status.PoolBalance)
		fmt.Printf("Premiums collected: %d\n", status.TotalPremiumsCollected)
		fmt.Printf("Claims processed:   %d\n", status.TotalClaimsProcessed)
		fmt.Printf("Claims paid:        %d\n", status.TotalClaimsPaid)
		fmt.Printf("Claims possible:    %d\n", status.ClaimsPossible)
		return nil
	},
}

// transfers command
var transfersCmd = &cobra.Command{
	Use:   "transfers [IDENTITY]",
	Short: "View recorded fund movements",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		party := ""
		if len(args) > 0 {
			party = args[0]
		}

		a, err := newApp("Transfers", party)
		if err != nil {
			return err
		}
		defer a.Close()

		transfers, err := a.Transfers(party, limit)
		if err != nil {
			return err
		}

		if len(transfers) == 0 {
			fmt.Println("No transfers recorded.")
			return nil
		}

		for _, tr := range transfers {
			fmt.Printf("%s  %-8s  %-12s  %6d  %s\n",
				tr.CreatedAt.Format("2006-01-02 15:04:05"),
				tr.Kind,
				tr.Party,
				tr.Amount,
				tr.Ref,
			)
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View engine operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("GetHistory", "")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.GetHistory(limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt != nil {
				d := op.FinishedAt.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-16s  %s  %-10s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
			)
		}
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configKeysCmd)
	configKeysCmd.Flags().String("passphrase", "", "Passphrase protecting the private key")

	// coverage subcommands
	coverageCmd.AddCommand(coverageBuyCmd)
	coverageBuyCmd.Flags().Int64("amount", 0, "Premium to pay (defaults to the configured premium)")
	coverageCmd.AddCommand(coverageStatusCmd)
	coverageCmd.AddCommand(coverageShowCmd)

	// claim subcommands
	claimCmd.AddCommand(claimFileCmd)
	claimFileCmd.Flags().String("photo", "", "Photo reference")
	claimFileCmd.Flags().String("lat", "", "GPS latitude")
	claimFileCmd.Flags().String("lon", "", "GPS longitude")
	claimFileCmd.Flags().Int64("timestamp", 0, "Accident time (unix seconds)")
	claimFileCmd.Flags().String("police-report", "", "Police report reference (optional)")
	claimFileCmd.Flags().String("description", "", "Accident description")
	claimFileCmd.Flags().String("notes", "", "Additional notes")
	claimCmd.AddCommand(claimManualCmd)
	claimManualCmd.Flags().String("notes", "", "Claim description for review")
	claimCmd.AddCommand(claimApproveCmd)
	claimCmd.AddCommand(claimRejectCmd)
	claimRejectCmd.Flags().String("reason", "", "Rejection reason")
	claimCmd.AddCommand(claimStatusCmd)
	claimCmd.AddCommand(claimEvidenceCmd)
	claimEvidenceCmd.Flags().String("passphrase", "", "Passphrase protecting the private key")

	// reputation subcommands
	reputationCmd.AddCommand(reputationSafeDayCmd)
	reputationCmd.AddCommand(reputationScoreCmd)

	// treasury subcommands
	treasuryCmd.AddCommand(treasuryFundCmd)
	treasuryCmd.AddCommand(treasuryWithdrawCmd)
	treasuryCmd.AddCommand(treasuryStatusCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(coverageCmd)
	rootCmd.AddCommand(claimCmd)
	rootCmd.AddCommand(reputationCmd)
	rootCmd.AddCommand(treasuryCmd)
	rootCmd.AddCommand(transfersCmd)
	transfersCmd.Flags().IntP("limit", "n", 50, "Maximum number of transfers to show")
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
}
