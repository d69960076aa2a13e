package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"round-curator/internal/identity"
	"round-curator/internal/round"
	"round-curator/internal/service"
)

var (
	keygenSeed string

	initParams round.InitParams

	proposalDraft round.ProposalDraft
	proposalType  string

	settleDue bool
)

func init() {
	keygenCmd.Flags().StringVar(&keygenSeed, "seed", "", "derive the key from this secret instead of randomly")

	initCmd.Flags().StringVar(&initParams.Name, "name", "", "round name (max 32 chars)")
	initCmd.Flags().Uint64Var(&initParams.TimeLimit, "time-limit", 86400, "round length in seconds")
	initCmd.Flags().Uint64Var(&initParams.BaseFeePercent, "base-fee", 10, "base fee percent of the total deposit")
	initCmd.Flags().Uint8Var(&initParams.FeeMultiplier, "fee-multiplier", 1, "fee multiplier")
	initCmd.Flags().BoolVar(&initParams.AiModeration, "ai-moderation", false, "enable AI moderation")
	initCmd.Flags().Uint8Var(&initParams.DepositSharePercent, "deposit-share", 50, "quality share percent of the base fee")

	proposeCmd.Flags().StringVar(&proposalDraft.Title, "title", "", "proposal title (max 16 chars)")
	proposeCmd.Flags().StringVar(&proposalDraft.Description, "description", "", "proposal description (max 32 chars)")
	proposeCmd.Flags().StringVar(&proposalType, "type", "", "change_time_limit, change_base_fee, change_ai_moderation or content_quality_rating")
	proposeCmd.Flags().StringSliceVar(&proposalDraft.Options, "option", nil, "option text (repeat, max 3)")
	proposeCmd.Flags().Uint64Var(&proposalDraft.VotingPeriod, "period", round.MinVotingPeriod, "voting period in seconds")

	settleCmd.Flags().BoolVar(&settleDue, "due", false, "settle every round that is due now")

	rootCmd.AddCommand(
		keygenCmd, fundCmd, balanceCmd,
		initCmd, depositCmd, submitCmd, endorseCmd, proposeCmd, voteCmd, toggleCmd,
		settleCmd, showCmd, payoutsCmd,
	)
}

// signed encodes cmd for action, signs it with the CLI key and dispatches it.
func signed(c *cobra.Command, action string, cmd any) (*service.Outcome, error) {
	key, err := signingKey()
	if err != nil {
		return nil, err
	}
	svc, err := openService()
	if err != nil {
		return nil, err
	}
	env, err := service.NewEnvelope(key, action, cmd)
	if err != nil {
		return nil, err
	}
	return svc.Dispatch(c.Context(), env)
}

func roundArg(args []string) (service.RoundCmd, error) {
	key, err := round.ParseKey(args[0])
	if err != nil {
		return service.RoundCmd{}, err
	}
	return service.RoundCmd{Round: key}, nil
}

func uintArg(name, s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

func printRound(out *service.Outcome) error {
	return printJSON(out.Round)
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Create a signing key and print it with its identity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key := identity.GenerateKey()
		if keygenSeed != "" {
			key = identity.KeyFromSeed([]byte(keygenSeed))
		}
		fmt.Printf("key:      %s\n", key.Hex())
		fmt.Printf("identity: %s\n", key.Identity())
		return nil
	},
}

var fundCmd = &cobra.Command{
	Use:   "fund <identity> <amount>",
	Short: "Credit an account's custody balance",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := uintArg("amount", args[1])
		if err != nil {
			return err
		}
		svc, err := openService()
		if err != nil {
			return err
		}
		if err := svc.Fund(cmd.Context(), round.Identity(args[0]), amount); err != nil {
			return err
		}
		bal, err := svc.Balance(cmd.Context(), round.Identity(args[0]))
		if err != nil {
			return err
		}
		fmt.Printf("%s %d\n", args[0], bal)
		return nil
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance [identity | owner/name]",
	Short: "Show the balance of an identity, a round's custody account or the signing key",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var account round.Identity
		switch {
		case len(args) == 0:
			key, err := signingKey()
			if err != nil {
				return err
			}
			account = key.Identity()
		default:
			if key, err := round.ParseKey(args[0]); err == nil {
				account = key.CustodyAccount()
			} else {
				account = round.Identity(args[0])
			}
		}
		svc, err := openService()
		if err != nil {
			return err
		}
		bal, err := svc.Balance(cmd.Context(), account)
		if err != nil {
			return err
		}
		fmt.Printf("%s %d\n", account, bal)
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a round owned by the signing key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := signed(cmd, service.ActionInitialize, service.InitializeCmd{InitParams: initParams})
		if err != nil {
			return err
		}
		return printRound(out)
	},
}

var depositCmd = &cobra.Command{
	Use:   "deposit <owner/name> <amount>",
	Short: "Stake into a round",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := roundArg(args)
		if err != nil {
			return err
		}
		amount, err := uintArg("amount", args[1])
		if err != nil {
			return err
		}
		out, err := signed(cmd, service.ActionDeposit, service.DepositCmd{RoundCmd: rc, Amount: amount})
		if err != nil {
			return err
		}
		return printRound(out)
	},
}

var submitCmd = &cobra.Command{
	Use:   "submit <owner/name> <text> [media-uri]",
	Short: "Submit a content entry (charges the challenge fee)",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := roundArg(args)
		if err != nil {
			return err
		}
		c := service.SubmitContentCmd{RoundCmd: rc, Text: args[1]}
		if len(args) == 3 {
			c.MediaURI = args[2]
		}
		out, err := signed(cmd, service.ActionSubmitContent, c)
		if err != nil {
			return err
		}
		return printRound(out)
	},
}

var endorseCmd = &cobra.Command{
	Use:   "endorse <owner/name> <content-index>",
	Short: "Endorse a content entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := roundArg(args)
		if err != nil {
			return err
		}
		idx, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("content-index: %w", err)
		}
		out, err := signed(cmd, service.ActionEndorseContent, service.EndorseContentCmd{RoundCmd: rc, ContentIndex: idx})
		if err != nil {
			return err
		}
		return printRound(out)
	},
}

var proposeCmd = &cobra.Command{
	Use:   "propose <owner/name>",
	Short: "Open a governance proposal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := roundArg(args)
		if err != nil {
			return err
		}
		typ, err := round.ParseProposalType(proposalType)
		if err != nil {
			return err
		}
		d := proposalDraft
		d.Type = typ
		out, err := signed(cmd, service.ActionCreateProposal, service.CreateProposalCmd{RoundCmd: rc, ProposalDraft: d})
		if err != nil {
			return err
		}
		fmt.Printf("proposal %d\n", *out.ProposalID)
		return nil
	},
}

var voteCmd = &cobra.Command{
	Use:   "vote <owner/name> <proposal-id> <option-index>",
	Short: "Vote on a proposal with the signer's deposit as weight",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := roundArg(args)
		if err != nil {
			return err
		}
		id, err := uintArg("proposal-id", args[1])
		if err != nil {
			return err
		}
		opt, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("option-index: %w", err)
		}
		out, err := signed(cmd, service.ActionCastVote, service.CastVoteCmd{RoundCmd: rc, ProposalID: id, OptionIndex: opt})
		if err != nil {
			return err
		}
		return printRound(out)
	},
}

var toggleCmd = &cobra.Command{
	Use:   "toggle <owner/name>",
	Short: "Flip a round's active flag (controller only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := roundArg(args)
		if err != nil {
			return err
		}
		out, err := signed(cmd, service.ActionToggleActive, rc)
		if err != nil {
			return err
		}
		fmt.Printf("%s active=%t\n", out.Round.Key(), out.Round.Active)
		return nil
	},
}

var settleCmd = &cobra.Command{
	Use:   "settle [owner/name]",
	Short: "Run process_timeout for a round, or for every due round with --due",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if settleDue {
			svc, err := openService()
			if err != nil {
				return err
			}
			done, err := svc.SettleDue(cmd.Context(), time.Now())
			if perr := printJSON(done); perr != nil {
				return perr
			}
			return err
		}
		if len(args) != 1 {
			return fmt.Errorf("settle needs a round or --due")
		}
		rc, err := roundArg(args)
		if err != nil {
			return err
		}
		out, err := signed(cmd, service.ActionProcessTimeout, rc)
		if err != nil {
			return err
		}
		return printJSON(out.Settlement)
	},
}

var showCmd = &cobra.Command{
	Use:   "show <owner/name>",
	Short: "Print a round's state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := roundArg(args)
		if err != nil {
			return err
		}
		svc, err := openService()
		if err != nil {
			return err
		}
		st, err := svc.Round(cmd.Context(), rc.Round)
		if err != nil {
			return err
		}
		return printJSON(st)
	},
}

var payoutsCmd = &cobra.Command{
	Use:   "payouts <owner/name>",
	Short: "List a round's settlements and pending payouts, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := roundArg(args)
		if err != nil {
			return err
		}
		svc, err := openService()
		if err != nil {
			return err
		}
		recs, err := svc.Settlements(cmd.Context(), rc.Round)
		if err != nil {
			return err
		}
		return printJSON(recs)
	},
}
