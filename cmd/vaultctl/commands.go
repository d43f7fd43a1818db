package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"time"

	"vaultchain/cmd/internal/passphrase"
	"vaultchain/config"
	"vaultchain/crypto"
	"vaultchain/native/cdp"
	"vaultchain/native/params"
	"vaultchain/native/vault"
	"vaultchain/observability/journal"
)

func commands() map[string]command {
	list := []command{
		{name: "keygen", summary: "Generate a key and seal it in a keystore", flags: keygenCmd},
		{name: "genesis", summary: "Write a default genesis file", flags: genesisCmd},
		{name: "init", summary: "Seed a fresh store from the configured genesis", needsRuntime: true, flags: initCmd},
		{name: "create-vault", summary: "Open a vault with initial collateral", needsRuntime: true, flags: createVaultCmd},
		{name: "deposit", summary: "Add collateral to an owned vault", needsRuntime: true, flags: depositCmd},
		{name: "withdraw", summary: "Remove collateral from an owned vault", needsRuntime: true, flags: withdrawCmd},
		{name: "mint", summary: "Mint liability tokens against a vault", needsRuntime: true, flags: mintCmd},
		{name: "redeem", summary: "Burn liability tokens against a vault", needsRuntime: true, flags: redeemCmd},
		{name: "liquidate", summary: "Seize an undercollateralized vault", needsRuntime: true, flags: liquidateCmd},
		{name: "authorize", summary: "Grant an oracle publishing rights", needsRuntime: true, flags: authorizeCmd},
		{name: "revoke", summary: "Withdraw an oracle's publishing rights", needsRuntime: true, flags: revokeCmd},
		{name: "submit-price", summary: "Publish a collateral price", needsRuntime: true, flags: submitPriceCmd},
		{name: "set-param", summary: "Update a risk parameter", needsRuntime: true, flags: setParamCmd},
		{name: "pause", summary: "Replace the set of paused actions", needsRuntime: true, flags: pauseCmd},
		{name: "vault", summary: "Show a vault", needsRuntime: true, flags: vaultCmd},
		{name: "health", summary: "Show a vault's ratio against the latest price", needsRuntime: true, flags: healthCmd},
		{name: "price", summary: "Show the latest accepted price", needsRuntime: true, flags: priceCmd},
		{name: "params", summary: "Show risk parameters and pauses", needsRuntime: true, flags: paramsCmd},
		{name: "supply", summary: "Show the outstanding liability supply", needsRuntime: true, flags: supplyCmd},
		{name: "audit", summary: "Check supply against the sum of vault liabilities", needsRuntime: true, flags: auditCmd},
		{name: "history", summary: "List journalled events", needsRuntime: true, flags: historyCmd},
	}
	out := make(map[string]command, len(list))
	for _, c := range list {
		out[c.name] = c
	}
	return out
}

func emit(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func amountString(v *big.Int) string {
	if v == nil {
		return ""
	}
	return v.String()
}

func vaultView(v *vault.Vault) map[string]any {
	return map[string]any{
		"id":         v.ID,
		"owner":      v.Owner.String(),
		"collateral": amountString(v.Collateral),
		"liability":  amountString(v.Liability),
		"createdAt":  v.CreatedAt,
	}
}

func keygenCmd(fs *flag.FlagSet) func(context.Context, *invocation) error {
	out := fs.String("out", "", "Keystore file to create")
	light := fs.Bool("light", false, "Use light scrypt parameters (throwaway keys only)")
	force := fs.Bool("force", false, "Overwrite an existing keystore file")
	return func(_ context.Context, env *invocation) error {
		if strings.TrimSpace(*out) == "" {
			return fmt.Errorf("--out is required")
		}
		if !*force {
			if _, err := os.Stat(*out); err == nil {
				return fmt.Errorf("keystore file %s already exists (use --force to overwrite)", *out)
			}
		}
		pass, err := passphrase.NewSource(env.passEnv).Get()
		if err != nil {
			return err
		}
		key, err := crypto.GeneratePrivateKey()
		if err != nil {
			return err
		}
		scrypt := crypto.StandardScrypt
		if *light {
			scrypt = crypto.LightScrypt
		}
		addr, err := crypto.SaveToKeystore(*out, key, pass, scrypt)
		if err != nil {
			return fmt.Errorf("write keystore: %w", err)
		}
		return emit(env.out, map[string]any{"address": addr.String(), "keystore": *out})
	}
}

func genesisCmd(fs *flag.FlagSet) func(context.Context, *invocation) error {
	governance := fs.String("governance", "", "Governance address")
	oracles := fs.String("oracles", "", "Comma separated oracle addresses")
	out := fs.String("out", "genesis.yaml", "Genesis file to write")
	return func(_ context.Context, env *invocation) error {
		gov, err := parseAddress("governance", *governance)
		if err != nil {
			return err
		}
		doc := config.DefaultGenesis(gov)
		doc.Oracles = append(doc.Oracles, splitList(*oracles)...)
		if _, err := doc.Resolve(); err != nil {
			return err
		}
		if err := config.WriteGenesis(*out, doc); err != nil {
			return err
		}
		return emit(env.out, map[string]any{"genesis": *out})
	}
}

func initCmd(fs *flag.FlagSet) func(context.Context, *invocation) error {
	return func(_ context.Context, env *invocation) error {
		g := env.rt.genesis
		if err := env.rt.engine.InitGenesis(cdp.Genesis{Params: g.Params, Pauses: g.Pauses, Oracles: g.Oracles}); err != nil {
			return err
		}
		oracles := make([]string, len(g.Oracles))
		for i, o := range g.Oracles {
			oracles[i] = o.String()
		}
		return emit(env.out, map[string]any{"governance": g.Governance.String(), "oracles": oracles})
	}
}

func createVaultCmd(fs *flag.FlagSet) func(context.Context, *invocation) error {
	collateral := fs.String("collateral", "", "Initial collateral in base units")
	return func(_ context.Context, env *invocation) error {
		amount, err := parseAmount("collateral", *collateral)
		if err != nil {
			return err
		}
		caller, err := env.caller()
		if err != nil {
			return err
		}
		id, err := env.rt.engine.CreateVault(caller, amount)
		if err != nil {
			return err
		}
		return emit(env.out, map[string]any{"id": id, "owner": caller.String()})
	}
}

// vaultAmountFlags registers the --vault and --amount pair shared by the
// owner-only vault commands.
func vaultAmountFlags(fs *flag.FlagSet) (*string, *string) {
	return fs.String("vault", "", "Vault id"), fs.String("amount", "", "Amount in base units")
}

func parseVaultAmount(vaultRaw, amountRaw string) (uint64, *big.Int, error) {
	id, err := parseVaultID(vaultRaw)
	if err != nil {
		return 0, nil, err
	}
	amount, err := parseAmount("amount", amountRaw)
	if err != nil {
		return 0, nil, err
	}
	return id, amount, nil
}

func depositCmd(fs *flag.FlagSet) func(context.Context, *invocation) error {
	vaultRaw, amountRaw := vaultAmountFlags(fs)
	return func(_ context.Context, env *invocation) error {
		id, amount, err := parseVaultAmount(*vaultRaw, *amountRaw)
		if err != nil {
			return err
		}
		caller, err := env.caller()
		if err != nil {
			return err
		}
		v, err := env.rt.engine.DepositCollateral(caller, caller, id, amount)
		if err != nil {
			return err
		}
		return emit(env.out, vaultView(v))
	}
}

func withdrawCmd(fs *flag.FlagSet) func(context.Context, *invocation) error {
	vaultRaw, amountRaw := vaultAmountFlags(fs)
	return func(_ context.Context, env *invocation) error {
		id, amount, err := parseVaultAmount(*vaultRaw, *amountRaw)
		if err != nil {
			return err
		}
		caller, err := env.caller()
		if err != nil {
			return err
		}
		v, err := env.rt.engine.WithdrawCollateral(caller, caller, id, amount)
		if err != nil {
			return err
		}
		return emit(env.out, vaultView(v))
	}
}

func mintCmd(fs *flag.FlagSet) func(context.Context, *invocation) error {
	vaultRaw, amountRaw := vaultAmountFlags(fs)
	return func(_ context.Context, env *invocation) error {
		id, amount, err := parseVaultAmount(*vaultRaw, *amountRaw)
		if err != nil {
			return err
		}
		caller, err := env.caller()
		if err != nil {
			return err
		}
		r, err := env.rt.engine.Mint(caller, caller, id, amount)
		if err != nil {
			return err
		}
		return emit(env.out, map[string]any{
			"vault":       r.VaultID,
			"amount":      amountString(r.Amount),
			"fee":         amountString(r.Fee),
			"liability":   amountString(r.Liability),
			"maxMintable": amountString(r.MaxMintable),
			"price":       amountString(r.Price),
			"supply":      amountString(r.Supply),
		})
	}
}

func redeemCmd(fs *flag.FlagSet) func(context.Context, *invocation) error {
	vaultRaw, amountRaw := vaultAmountFlags(fs)
	return func(_ context.Context, env *invocation) error {
		id, amount, err := parseVaultAmount(*vaultRaw, *amountRaw)
		if err != nil {
			return err
		}
		caller, err := env.caller()
		if err != nil {
			return err
		}
		r, err := env.rt.engine.Redeem(caller, caller, id, amount)
		if err != nil {
			return err
		}
		return emit(env.out, map[string]any{
			"vault":     r.VaultID,
			"amount":    amountString(r.Amount),
			"fee":       amountString(r.Fee),
			"liability": amountString(r.Liability),
			"supply":    amountString(r.Supply),
		})
	}
}

func liquidateCmd(fs *flag.FlagSet) func(context.Context, *invocation) error {
	vaultRaw := fs.String("vault", "", "Vault id")
	ownerRaw := fs.String("owner", "", "Vault owner (looked up by id when empty)")
	return func(_ context.Context, env *invocation) error {
		id, err := parseVaultID(*vaultRaw)
		if err != nil {
			return err
		}
		var owner crypto.Address
		if strings.TrimSpace(*ownerRaw) != "" {
			if owner, err = parseAddress("owner", *ownerRaw); err != nil {
				return err
			}
		} else {
			v, err := env.rt.engine.VaultByID(id)
			if err != nil {
				return err
			}
			owner = v.Owner
		}
		caller, err := env.caller()
		if err != nil {
			return err
		}
		r, err := env.rt.engine.Liquidate(caller, owner, id)
		if err != nil {
			return err
		}
		return emit(env.out, map[string]any{
			"vault":      r.VaultID,
			"owner":      r.Owner.String(),
			"liquidator": r.Liquidator.String(),
			"seized":     amountString(r.Seized),
			"burned":     amountString(r.Burned),
			"ratio":      amountString(r.Ratio),
			"price":      amountString(r.Price),
			"supply":     amountString(r.Supply),
		})
	}
}

func authorizeCmd(fs *flag.FlagSet) func(context.Context, *invocation) error {
	oracleRaw := fs.String("oracle", "", "Oracle address")
	return func(_ context.Context, env *invocation) error {
		candidate, err := parseAddress("oracle", *oracleRaw)
		if err != nil {
			return err
		}
		caller, err := env.caller()
		if err != nil {
			return err
		}
		if err := env.rt.engine.AuthorizeOracle(caller, candidate); err != nil {
			return err
		}
		return emit(env.out, map[string]any{"oracle": candidate.String(), "authorized": true})
	}
}

func revokeCmd(fs *flag.FlagSet) func(context.Context, *invocation) error {
	oracleRaw := fs.String("oracle", "", "Oracle address")
	return func(_ context.Context, env *invocation) error {
		member, err := parseAddress("oracle", *oracleRaw)
		if err != nil {
			return err
		}
		caller, err := env.caller()
		if err != nil {
			return err
		}
		if err := env.rt.engine.RevokeOracle(caller, member); err != nil {
			return err
		}
		return emit(env.out, map[string]any{"oracle": member.String(), "authorized": false})
	}
}

func submitPriceCmd(fs *flag.FlagSet) func(context.Context, *invocation) error {
	priceRaw := fs.String("price", "", "Collateral price")
	timestamp := fs.Uint64("timestamp", 0, "Observation time in unix seconds (defaults to now)")
	return func(_ context.Context, env *invocation) error {
		price, err := parseAmount("price", *priceRaw)
		if err != nil {
			return err
		}
		ts := *timestamp
		if ts == 0 {
			ts = uint64(time.Now().Unix())
		}
		caller, err := env.caller()
		if err != nil {
			return err
		}
		if err := env.rt.engine.SubmitPrice(caller, price, ts); err != nil {
			return err
		}
		return emit(env.out, map[string]any{"price": price.String(), "timestamp": ts, "oracle": caller.String()})
	}
}

func setParamCmd(fs *flag.FlagSet) func(context.Context, *invocation) error {
	name := fs.String("name", "", "Parameter name: "+strings.Join(params.Names(), ", "))
	valueRaw := fs.String("value", "", "New value")
	return func(_ context.Context, env *invocation) error {
		value, err := parseAmount("value", *valueRaw)
		if err != nil {
			return err
		}
		caller, err := env.caller()
		if err != nil {
			return err
		}
		if err := env.rt.engine.SetParam(caller, strings.TrimSpace(*name), value); err != nil {
			return err
		}
		return showParams(env)
	}
}

func pauseCmd(fs *flag.FlagSet) func(context.Context, *invocation) error {
	actions := fs.String("actions", "", "Comma separated actions to pause; empty resumes everything")
	return func(_ context.Context, env *invocation) error {
		pauses, err := params.ParsePauses(splitList(*actions))
		if err != nil {
			return err
		}
		caller, err := env.caller()
		if err != nil {
			return err
		}
		if err := env.rt.engine.SetPauses(caller, pauses); err != nil {
			return err
		}
		return showParams(env)
	}
}

func vaultCmd(fs *flag.FlagSet) func(context.Context, *invocation) error {
	vaultRaw := fs.String("vault", "", "Vault id")
	return func(_ context.Context, env *invocation) error {
		id, err := parseVaultID(*vaultRaw)
		if err != nil {
			return err
		}
		v, err := env.rt.engine.VaultByID(id)
		if err != nil {
			return err
		}
		return emit(env.out, vaultView(v))
	}
}

func healthCmd(fs *flag.FlagSet) func(context.Context, *invocation) error {
	vaultRaw := fs.String("vault", "", "Vault id")
	return func(_ context.Context, env *invocation) error {
		id, err := parseVaultID(*vaultRaw)
		if err != nil {
			return err
		}
		v, err := env.rt.engine.VaultByID(id)
		if err != nil {
			return err
		}
		h, err := env.rt.engine.Health(v.Owner, id)
		if err != nil {
			return err
		}
		return emit(env.out, map[string]any{
			"vault":          h.VaultID,
			"owner":          h.Owner.String(),
			"collateral":     amountString(h.Collateral),
			"liability":      amountString(h.Liability),
			"price":          amountString(h.Price),
			"priceTimestamp": h.PriceTimestamp,
			"ratio":          amountString(h.Ratio),
			"maxMintable":    amountString(h.MaxMintable),
			"headroom":       amountString(h.Headroom),
			"liquidatable":   h.Liquidatable,
		})
	}
}

func priceCmd(fs *flag.FlagSet) func(context.Context, *invocation) error {
	return func(_ context.Context, env *invocation) error {
		obs, ok, err := env.rt.engine.LatestPrice()
		if err != nil {
			return err
		}
		if !ok {
			return emit(env.out, map[string]any{"available": false})
		}
		return emit(env.out, map[string]any{
			"available": true,
			"price":     amountString(obs.Price),
			"timestamp": obs.Timestamp,
		})
	}
}

func paramsCmd(fs *flag.FlagSet) func(context.Context, *invocation) error {
	return func(_ context.Context, env *invocation) error {
		return showParams(env)
	}
}

func showParams(env *invocation) error {
	risk, err := env.rt.engine.Params()
	if err != nil {
		return err
	}
	pauses, err := env.rt.engine.Pauses()
	if err != nil {
		return err
	}
	return emit(env.out, map[string]any{
		params.NameCollateralizationRatio: risk.CollateralizationRatio,
		params.NameLiquidationThreshold:   risk.LiquidationThreshold,
		params.NameMintFeeBps:             risk.MintFeeBps,
		params.NameRedemptionFeeBps:       risk.RedemptionFeeBps,
		params.NameMaxMintLimit:           amountString(risk.MaxMintLimit),
		"paused":                          pauses.Active(),
		"governance":                      env.rt.engine.Governance().String(),
	})
}

func supplyCmd(fs *flag.FlagSet) func(context.Context, *invocation) error {
	return func(_ context.Context, env *invocation) error {
		total, err := env.rt.engine.TotalSupply()
		if err != nil {
			return err
		}
		return emit(env.out, map[string]any{"supply": amountString(total)})
	}
}

func auditCmd(fs *flag.FlagSet) func(context.Context, *invocation) error {
	return func(_ context.Context, env *invocation) error {
		report, err := env.rt.engine.Audit()
		if err != nil {
			return err
		}
		if err := emit(env.out, map[string]any{
			"supply":         amountString(report.Supply),
			"liabilitySum":   amountString(report.LiabilitySum),
			"collateralSum":  amountString(report.CollateralSum),
			"vaults":         report.Vaults,
			"liquidatable":   report.Liquidatable,
			"priceAvailable": report.PriceAvailable,
			"balanced":       report.Balanced,
		}); err != nil {
			return err
		}
		if !report.Balanced {
			return fmt.Errorf("supply %s does not match liabilities %s", report.Supply, report.LiabilitySum)
		}
		return nil
	}
}

func historyCmd(fs *flag.FlagSet) func(context.Context, *invocation) error {
	vaultRaw := fs.String("vault", "", "Only events for this vault id")
	eventType := fs.String("type", "", "Only events of this type")
	ownerRaw := fs.String("owner", "", "Only events for this owner")
	limit := fs.Int("limit", 50, "Most recent entries to show; 0 shows all")
	return func(ctx context.Context, env *invocation) error {
		filter := journal.Filter{Type: *eventType, Limit: *limit}
		if strings.TrimSpace(*vaultRaw) != "" {
			id, err := parseVaultID(*vaultRaw)
			if err != nil {
				return err
			}
			filter.VaultID = id
		}
		if strings.TrimSpace(*ownerRaw) != "" {
			owner, err := parseAddress("owner", *ownerRaw)
			if err != nil {
				return err
			}
			filter.Owner = owner.String()
		}
		entries, err := env.rt.journal.History(ctx, filter)
		if err != nil {
			return err
		}
		rows := make([]map[string]any, len(entries))
		for i, entry := range entries {
			rows[i] = map[string]any{
				"seq":        entry.Seq,
				"batch":      entry.Batch.String(),
				"type":       entry.Event.Type,
				"attributes": entry.Event.Attributes,
				"recordedAt": entry.RecordedAt.Format(time.RFC3339),
			}
		}
		return emit(env.out, rows)
	}
}
