package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ipamkit/ipamkit/internal/backup"
	"github.com/ipamkit/ipamkit/internal/domain"
	"github.com/ipamkit/ipamkit/internal/export"
	"github.com/ipamkit/ipamkit/internal/importer"
)

func newSpaceCmd() *cobra.Command {
	spaceCmd := &cobra.Command{
		Use:   "space",
		Short: "Manage address spaces",
	}

	var (
		cidr        string
		name        string
		dnsDomain   string
		vlanID      int32
		location    string
		description string
	)
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an address space",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer env.close()

			space, err := env.svc.CreateSpace(ctx, domain.CreateSpaceInput{
				CIDR:        cidr,
				Name:        name,
				Domain:      dnsDomain,
				VLANID:      vlanID,
				Location:    location,
				Description: description,
			})
			if err != nil {
				return err
			}
			if err := env.save(ctx); err != nil {
				return err
			}

			fmt.Printf("space %d created: %s\n", space.ID, space.CIDR)
			return nil
		},
	}
	createCmd.Flags().StringVar(&cidr, "cidr", "", "CIDR block, e.g. 192.168.1.0/24 (required)")
	createCmd.Flags().StringVar(&name, "name", "", "Human-readable name")
	createCmd.Flags().StringVar(&dnsDomain, "domain", "", "DNS domain")
	createCmd.Flags().Int32Var(&vlanID, "vlan", 0, "VLAN id")
	createCmd.Flags().StringVar(&location, "location", "", "Location")
	createCmd.Flags().StringVar(&description, "description", "", "Description")
	createCmd.MarkFlagRequired("cidr")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List address spaces with utilization",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer env.close()

			spaces, err := env.svc.ListSpaces(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCIDR\tNAME\tVLAN\tTOTAL\tUSED\tFREE")
			for _, space := range spaces {
				util, err := env.svc.Utilization(ctx, space.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%d\t%d\n",
					space.ID, space.CIDR, space.Name, space.VLANID,
					util.Total, util.Used, util.Available)
			}
			return w.Flush()
		},
	}

	var cascade bool
	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an address space",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid space id %q", args[0])
			}

			ctx := cmd.Context()
			env, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer env.close()

			if err := env.svc.DeleteSpace(ctx, id, cascade); err != nil {
				return err
			}
			if err := env.save(ctx); err != nil {
				return err
			}

			fmt.Printf("space %d deleted\n", id)
			return nil
		},
	}
	deleteCmd.Flags().BoolVar(&cascade, "cascade", false, "Also delete the space's assignments")

	spaceCmd.AddCommand(createCmd, listCmd, deleteCmd)
	return spaceCmd
}

func newAssignCmd() *cobra.Command {
	var (
		hostname  string
		cname     string
		mac       string
		status    string
		spaceID   int64
		assigned  bool
		source    string
		unmanaged bool
		auto      bool
	)
	assignCmd := &cobra.Command{
		Use:   "assign [address]",
		Short: "Assign an address to a host",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer env.close()

			var addr string
			switch {
			case len(args) == 1:
				addr = args[0]
			case auto && spaceID != 0:
				next, err := env.svc.NextAvailable(ctx, spaceID)
				if err != nil {
					return err
				}
				addr = next.String()
			default:
				return fmt.Errorf("an address argument or --auto with --space is required")
			}

			a, err := env.svc.Assign(ctx, domain.CreateAssignmentInput{
				Addr:            addr,
				Hostname:        hostname,
				CNAME:           cname,
				MAC:             mac,
				Status:          status,
				SpaceID:         spaceID,
				Assigned:        assigned,
				DiscoverySource: source,
				AllowUnmanaged:  unmanaged,
			})
			if err != nil {
				return err
			}
			if err := env.save(ctx); err != nil {
				return err
			}

			fmt.Printf("assigned %s (id %s)\n", a.Addr, a.ID)
			return nil
		},
	}
	assignCmd.Flags().StringVar(&hostname, "hostname", "", "Hostname")
	assignCmd.Flags().StringVar(&cname, "cname", "", "DNS alias")
	assignCmd.Flags().StringVar(&mac, "mac", "", "MAC address")
	assignCmd.Flags().StringVar(&status, "status", "", "Status: active, inactive or reserved")
	assignCmd.Flags().Int64Var(&spaceID, "space", 0, "Owning space id (inferred by containment when omitted)")
	assignCmd.Flags().BoolVar(&assigned, "assigned", true, "Mark the address as assigned")
	assignCmd.Flags().StringVar(&source, "source", "", "Discovery source")
	assignCmd.Flags().BoolVar(&unmanaged, "unmanaged", false, "Allow an address outside every managed space")
	assignCmd.Flags().BoolVar(&auto, "auto", false, "Pick the next free address in --space")
	return assignCmd
}

func newReleaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "release <assignment-id>",
		Short: "Delete an assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer env.close()

			if err := env.svc.DeleteAssignment(ctx, domain.AssignmentID(args[0])); err != nil {
				return err
			}
			if err := env.save(ctx); err != nil {
				return err
			}

			fmt.Println("released")
			return nil
		},
	}
}

func newRangeCmd() *cobra.Command {
	rangeCmd := &cobra.Command{
		Use:   "range",
		Short: "Manage reserved ranges",
	}

	var (
		spaceID     int64
		start       string
		end         string
		inactive    bool
		description string
	)
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Reserve a range of addresses",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer env.close()

			r, err := env.svc.AddReservedRange(ctx, domain.CreateRangeInput{
				SpaceID:     spaceID,
				Start:       start,
				End:         end,
				Active:      !inactive,
				Description: description,
			})
			if err != nil {
				return err
			}
			if err := env.save(ctx); err != nil {
				return err
			}

			fmt.Printf("range %d reserved: %s-%s\n", r.ID, r.Start, r.End)
			return nil
		},
	}
	addCmd.Flags().Int64Var(&spaceID, "space", 0, "Owning space id (required)")
	addCmd.Flags().StringVar(&start, "start", "", "First address (required)")
	addCmd.Flags().StringVar(&end, "end", "", "Last address, inclusive (required)")
	addCmd.Flags().BoolVar(&inactive, "inactive", false, "Create the range inactive")
	addCmd.Flags().StringVar(&description, "description", "", "Description")
	addCmd.MarkFlagRequired("space")
	addCmd.MarkFlagRequired("start")
	addCmd.MarkFlagRequired("end")

	listCmd := &cobra.Command{
		Use:   "list <space-id>",
		Short: "List reserved ranges in a space",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid space id %q", args[0])
			}

			ctx := cmd.Context()
			env, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer env.close()

			ranges, err := env.svc.ListReservedRanges(ctx, id)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTART\tEND\tACTIVE\tDESCRIPTION")
			for _, r := range ranges {
				fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%s\n", r.ID, r.Start, r.End, r.Active, r.Description)
			}
			return w.Flush()
		},
	}

	rangeCmd.AddCommand(addCmd, listCmd)
	return rangeCmd
}

func newNextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next <space-id>",
		Short: "Print the next free address in a space",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid space id %q", args[0])
			}

			ctx := cmd.Context()
			env, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer env.close()

			addr, err := env.svc.NextAvailable(ctx, id)
			if err != nil {
				return err
			}
			fmt.Println(addr)
			return nil
		},
	}
}

func newAvailableCmd() *cobra.Command {
	var limit int
	availableCmd := &cobra.Command{
		Use:   "available <space-id>",
		Short: "List free addresses in a space",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid space id %q", args[0])
			}

			ctx := cmd.Context()
			env, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer env.close()

			addrs, err := env.svc.AvailableList(ctx, id, limit)
			if err != nil {
				return err
			}
			for _, addr := range addrs {
				fmt.Println(addr)
			}
			return nil
		},
	}
	availableCmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of addresses to print (0 = all)")
	return availableCmd
}

func newQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <address>",
		Short: "Classify an address: assigned, reserved, available or unmanaged",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := domain.ParseIPv4(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			env, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer env.close()

			result, err := env.svc.Query(ctx, addr)
			if err != nil {
				return err
			}

			fmt.Printf("%s: %s\n", result.Addr, result.Class)
			if result.Assignment != nil {
				a := result.Assignment
				fmt.Printf("  id: %s\n  hostname: %s\n  status: %s\n", a.ID, a.Hostname, a.Status)
			}
			if result.Space != nil {
				fmt.Printf("  space: %d (%s)\n", result.Space.ID, result.Space.CIDR)
			}
			return nil
		},
	}
}

func newExportCmd() *cobra.Command {
	var (
		format string
		kind   string
		out    string
	)
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export spaces or hosts to a file format",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer env.close()

			registry := export.NewDefaultRegistry()
			exporter, err := registry.Get(format)
			if err != nil {
				return fmt.Errorf("%s (available: %v)", err, registry.Names())
			}

			var data []byte
			switch kind {
			case "spaces":
				records, err := spaceRecords(ctx, env.svc)
				if err != nil {
					return err
				}
				data, err = exporter.ExportSpaces(records)
				if err != nil {
					return err
				}
			case "hosts":
				records, err := assignmentRecords(ctx, env.svc)
				if err != nil {
					return err
				}
				data, err = exporter.ExportAssignments(records)
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown kind %q: want spaces or hosts", kind)
			}

			if out == "" || out == "-" {
				_, err = os.Stdout.Write(data)
				return err
			}
			return os.WriteFile(out, data, 0o644)
		},
	}
	exportCmd.Flags().StringVar(&format, "format", "csv", "Export format")
	exportCmd.Flags().StringVar(&kind, "kind", "hosts", "What to export: spaces or hosts")
	exportCmd.Flags().StringVar(&out, "out", "-", "Output file (- for stdout)")
	return exportCmd
}

func spaceRecords(ctx context.Context, svc domain.AllocationService) ([]export.SpaceRecord, error) {
	spaces, err := svc.ListSpaces(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]export.SpaceRecord, 0, len(spaces))
	for _, space := range spaces {
		util, err := svc.Utilization(ctx, space.ID)
		if err != nil {
			return nil, err
		}
		records = append(records, export.SpaceRecord{Space: space, Util: util})
	}
	return records, nil
}

func assignmentRecords(ctx context.Context, svc domain.AllocationService) ([]export.AssignmentRecord, error) {
	assignments, err := svc.ListAssignments(ctx, 0)
	if err != nil {
		return nil, err
	}

	spaceByID := make(map[int64]*domain.Space)
	records := make([]export.AssignmentRecord, 0, len(assignments))
	for _, a := range assignments {
		rec := export.AssignmentRecord{Assignment: a}
		if a.SpaceID != 0 {
			space, ok := spaceByID[a.SpaceID]
			if !ok {
				found, err := svc.GetSpace(ctx, a.SpaceID)
				if err != nil {
					return nil, err
				}
				space = &found
				spaceByID[a.SpaceID] = space
			}
			rec.Space = space
		}
		records = append(records, rec)
	}
	return records, nil
}

func newImportCmd() *cobra.Command {
	var (
		format string
		kind   string
		in     string
	)
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import spaces or hosts from a file",
		Long: `Import parses the input file, then applies each record on its own:
rows that fail validation or conflict are reported and skipped while the
rest commit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(in)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			env, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer env.close()

			registry := importer.NewDefaultRegistry()
			imp, err := registry.Get(format)
			if err != nil {
				return fmt.Errorf("%s (available: %v)", err, registry.Names())
			}

			var result domain.ImportResult
			switch kind {
			case "spaces":
				rows, parseFailures, err := imp.ParseSpaces(content)
				if err != nil {
					return err
				}
				result, err = env.svc.ImportSpaces(ctx, rows)
				if err != nil {
					return err
				}
				result.Failures = append(parseFailures, result.Failures...)
			case "hosts":
				rows, parseFailures, err := imp.ParseAssignments(content)
				if err != nil {
					return err
				}
				result, err = env.svc.ImportAssignments(ctx, rows)
				if err != nil {
					return err
				}
				result.Failures = append(parseFailures, result.Failures...)
			default:
				return fmt.Errorf("unknown kind %q: want spaces or hosts", kind)
			}

			if err := env.save(ctx); err != nil {
				return err
			}

			fmt.Printf("imported %d, failed %d\n", result.Committed, len(result.Failures))
			for _, failure := range result.Failures {
				fmt.Printf("  row %d: %s\n", failure.Line, failure.Err)
			}
			return nil
		},
	}
	importCmd.Flags().StringVar(&format, "format", "csv", "Import format")
	importCmd.Flags().StringVar(&kind, "kind", "hosts", "What to import: spaces or hosts")
	importCmd.Flags().StringVar(&in, "in", "", "Input file (required)")
	importCmd.MarkFlagRequired("in")
	return importCmd
}

func newBackupCmd() *cobra.Command {
	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot and restore the whole store",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Write a snapshot of the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer env.close()

			info, err := backup.NewManager(env.snap, backupDir).Create(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%s (%d bytes)\n", info.Name, info.SizeBytes)
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			infos, err := backup.NewManager(nil, backupDir).List()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSIZE\tCREATED")
			for _, info := range infos {
				fmt.Fprintf(w, "%s\t%d\t%s\n", info.Name, info.SizeBytes, info.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}

	restoreCmd := &cobra.Command{
		Use:   "restore <name>",
		Short: "Replace the store contents with a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer env.close()

			if err := backup.NewManager(env.snap, backupDir).Restore(ctx, args[0]); err != nil {
				return err
			}
			if err := env.save(ctx); err != nil {
				return err
			}

			fmt.Printf("restored %s\n", args[0])
			return nil
		},
	}

	backupCmd.AddCommand(createCmd, listCmd, restoreCmd)
	return backupCmd
}
