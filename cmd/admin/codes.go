package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/dto"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/repository"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/service"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/clock"
)

var codesCmd = &cobra.Command{
	Use:   "codes",
	Short: "Manage beta invitation codes",
}

var (
	genOrg       string
	genCount     int
	genExpiresIn time.Duration
	genOut       string
)

var codesGenerateCmd = &cobra.Command{
	Use:     "generate",
	Short:   "Generate a batch of invitation codes for an organization",
	Example: `  admin codes generate --org "Reef School" --count 40 --expires-in 720h --out reef.xlsx`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := betaCodeService()
		ctx := cmd.Context()

		req := &dto.GenerateBetaCodesRequest{Organization: genOrg, Count: genCount}
		if genExpiresIn > 0 {
			days := int((genExpiresIn + 24*time.Hour - 1) / (24 * time.Hour))
			req.ExpiresInDays = days
		}

		batch, err := svc.GenerateBatch(ctx, req, "")
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "batch %s: %d codes for %s\n", batch.BatchID, len(batch.Codes), batch.Organization)

		if genOut == "" {
			for _, c := range batch.Codes {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		}

		buf, _, err := svc.Export(ctx, &dto.BetaCodeExportRequest{BatchID: batch.BatchID})
		if err != nil {
			return err
		}
		if err := os.WriteFile(genOut, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", genOut, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "written to %s\n", genOut)
		return nil
	},
}

var (
	listOrg    string
	listBatch  string
	listUnused bool
	listLimit  int
)

var codesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List invitation codes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &dto.BetaCodeListRequest{Organization: listOrg, BatchID: listBatch}
		req.PageSize = listLimit
		if listUnused {
			unused := false
			req.Used = &unused
		}

		codes, total, err := betaCodeService().List(cmd.Context(), req)
		if err != nil {
			return err
		}
		return printCodes(cmd.OutOrStdout(), codes, total)
	},
}

func init() {
	codesGenerateCmd.Flags().StringVar(&genOrg, "org", "", "organization the codes belong to")
	codesGenerateCmd.Flags().IntVar(&genCount, "count", 0, "number of codes")
	codesGenerateCmd.Flags().DurationVar(&genExpiresIn, "expires-in", 0, "validity, rounded up to whole days (e.g. 720h)")
	codesGenerateCmd.Flags().StringVar(&genOut, "out", "", "write the batch to this .xlsx file")
	_ = codesGenerateCmd.MarkFlagRequired("org")
	_ = codesGenerateCmd.MarkFlagRequired("count")

	codesListCmd.Flags().StringVar(&listOrg, "org", "", "filter by organization")
	codesListCmd.Flags().StringVar(&listBatch, "batch", "", "filter by batch id")
	codesListCmd.Flags().BoolVar(&listUnused, "unused", false, "only codes not yet redeemed")
	codesListCmd.Flags().IntVar(&listLimit, "limit", 100, "maximum rows")

	codesCmd.AddCommand(codesGenerateCmd, codesListCmd)
}

func betaCodeService() service.BetaCodeService {
	return service.NewBetaCodeService(&app.cfg.Beta, repository.NewRepository(app.db), clock.Real{}, app.logger)
}

func printCodes(out io.Writer, codes []dto.BetaCodeResponse, total int64) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tORGANIZATION\tUSED\tEXPIRES")
	for _, c := range codes {
		expires := "-"
		if c.ExpiresAt != nil {
			expires = *c.ExpiresAt
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", c.Code, c.Organization, c.IsUsed, expires)
	}
	fmt.Fprintf(tw, "\n%d of %d codes\n", len(codes), total)
	return tw.Flush()
}
