package main

import (
	"context"
	"io"
	"strconv"

	units "github.com/docker/go-units"
	"github.com/olekukonko/tablewriter"

	"llamagate/internal/config"
	"llamagate/internal/registry"
)

// listModels prints the registry as a table. Without all, only the names
// served by /api/tags are shown.
func listModels(ctx context.Context, w io.Writer, cfg config.Config, all, details bool) error {
	manifests, blobs, err := cfg.Dirs()
	if err != nil {
		return err
	}
	store := registry.NewStore(registry.Options{ManifestsDir: manifests, BlobsDir: blobs})
	reg, err := store.Refresh(ctx)
	if err != nil {
		return err
	}
	names := reg.Names()
	if !all {
		names = registry.DisplayNames(names)
	}

	header := []string{"NAME", "SIZE", "DIGEST", "MODIFIED"}
	if all {
		header = append(header, "TARGET")
	}
	if details {
		header = append(header, "FAMILY", "PARAMS", "QUANT")
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	for _, name := range names {
		e, ok := reg.Lookup(name)
		if !ok {
			continue
		}
		row := []string{name, units.HumanSize(float64(e.Size)), shortDigest(e.Digest.Encoded()), e.ModifiedAt.Format("2006-01-02 15:04")}
		if all {
			target := "-"
			if e.Alias {
				target = e.Name
			}
			row = append(row, target)
		}
		if details {
			d := store.Details(e)
			row = append(row, orDash(d.Family), orDash(d.ParameterSize), orDash(d.QuantizationLevel))
		}
		table.Append(row)
	}
	table.SetFooter(footer(len(header), strconv.Itoa(len(names))+" models"))
	table.Render()
	return nil
}

func shortDigest(hex string) string {
	if len(hex) > 12 {
		return hex[:12]
	}
	return hex
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func footer(cols int, first string) []string {
	out := make([]string, cols)
	out[0] = first
	return out
}
