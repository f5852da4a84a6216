// Package cmds implements the procinspect command line.
package cmds

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"text/tabwriter"

	"procinspect/config"
	"procinspect/hexdump"
	"procinspect/inspect"
	"procinspect/process"
	"procinspect/scan"

	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var log = logger.NewLogger("procinspect")

// newBackend returns the backend for the host OS; tests replace it.
var newBackend = platformBackend

var (
	// configPath overrides the default config file location.
	configPath string
	// workers overrides the configured worker count for list.
	workers int
	// colorMode overrides the configured color mode.
	colorMode colorValue

	// nameFilter limits list to processes whose name contains it.
	nameFilter string
	// namePattern limits list to processes whose name matches it.
	namePattern string
	// cmdlinePattern limits list to processes whose command line matches it.
	cmdlinePattern string
	// childrenOf and descendantsOf limit list to part of the process tree.
	childrenOf    uint32
	descendantsOf uint32
	// showPointers annotates dumps with values that point into mapped memory.
	showPointers bool
	// committedOnly limits regions to committed memory.
	committedOnly bool
	// maxMatches bounds the number of scan results.
	maxMatches int
	// selfBytes is the number of bytes the self check reads.
	selfBytes string

	conf *config.Config
)

// New returns an initialized command tree.
func New() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:   "procinspect",
		Short: "Read-only inspection of running processes.",
		Long: `procinspect lists the processes on this host, walks the virtual memory
regions of a chosen process and reads raw bytes from its address space.
It never writes to or suspends the target.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			conf, err = config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				conf.Workers = workers
			}
			if colorMode != "" {
				conf.Color = string(colorMode)
			}
			return conf.Validate()
		},
	}

	rootCommand.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $HOME/.procinspect/config.yml).")
	rootCommand.PersistentFlags().IntVar(&workers, "workers", 0, "Processes inspected concurrently by list (0 = one per CPU).")
	colorMode = ""
	rootCommand.PersistentFlags().Var(&colorMode, "color", "Color output: auto, always or never.")

	listCommand := &cobra.Command{
		Use:   "list",
		Short: "List every process with its name.",
		Args:  cobra.NoArgs,
		RunE:  listCmd,
	}
	listCommand.Flags().StringVar(&nameFilter, "name", "", "Only list processes whose name contains this string.")
	listCommand.Flags().StringVar(&namePattern, "pattern", "", "Only list processes whose name matches this regular expression.")
	listCommand.Flags().StringVar(&cmdlinePattern, "cmdline", "", "Only list processes whose command line matches this regular expression.")
	listCommand.Flags().Uint32Var(&childrenOf, "children", 0, "Only list the direct children of this pid.")
	listCommand.Flags().Uint32Var(&descendantsOf, "descendants", 0, "Only list processes started, directly or not, by this pid.")
	rootCommand.AddCommand(listCommand)

	treeCommand := &cobra.Command{
		Use:   "tree <pid>",
		Short: "Show the process tree rooted at a process.",
		Args:  cobra.ExactArgs(1),
		RunE:  treeCmd,
	}
	rootCommand.AddCommand(treeCommand)

	regionsCommand := &cobra.Command{
		Use:   "regions <pid>",
		Short: "Show the memory regions of a process.",
		Args:  cobra.ExactArgs(1),
		RunE:  regionsCmd,
	}
	regionsCommand.Flags().BoolVar(&committedOnly, "committed", false, "Only show committed regions.")
	rootCommand.AddCommand(regionsCommand)

	readCommand := &cobra.Command{
		Use:   "read <pid> <addr> <len>",
		Short: "Hex dump memory of a process.",
		Long: `Reads len bytes at addr and dumps the bytes actually read. addr accepts
decimal or 0x-prefixed hex, len accepts sizes such as 4096 or 4KiB.`,
		Args: cobra.ExactArgs(3),
		RunE: readCmd,
	}
	readCommand.Flags().BoolVar(&showPointers, "pointers", false, "Show the qwords of each line that point into committed memory.")
	rootCommand.AddCommand(readCommand)

	scanCommand := &cobra.Command{
		Use:   "scan <pid> <aob>",
		Short: "Search the readable memory of a process for a byte pattern.",
		Long: `Searches every committed readable region for aob, a list of hex bytes
where ?? matches any byte, for example "48 8b ?? 05".`,
		Args: cobra.ExactArgs(2),
		RunE: scanCmd,
	}
	scanCommand.Flags().IntVar(&maxMatches, "max", 0, "Stop after this many matches (0 = no limit).")
	scanCommand.Flags().BoolVar(&showPointers, "pointers", false, "Show the qwords of each line that point into committed memory.")
	rootCommand.AddCommand(scanCommand)

	selfCommand := &cobra.Command{
		Use:   "self",
		Short: "Inspect this process as a self check.",
		Args:  cobra.NoArgs,
		RunE:  selfCmd,
	}
	selfCommand.Flags().StringVar(&selfBytes, "bytes", "64", "Bytes to read from the first readable region.")
	rootCommand.AddCommand(selfCommand)

	return rootCommand
}

func parsePID(s string) (process.ProcessID, error) {
	pid, err := strconv.ParseUint(s, 10, 32)
	if err != nil || pid == 0 {
		return 0, fmt.Errorf("invalid pid %q", s)
	}
	return process.ProcessID(pid), nil
}

func parseAddress(s string) (process.ProcessMemoryAddress, error) {
	addr, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	return process.ProcessMemoryAddress(addr), nil
}

func parseSize(s string) (process.ProcessMemorySize, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid length %q: %w", s, err)
	}
	return process.ProcessMemorySize(n), nil
}

func openPID(arg string) (*process.Handle, error) {
	pid, err := parsePID(arg)
	if err != nil {
		return nil, err
	}
	b, err := newBackend()
	if err != nil {
		return nil, err
	}
	return process.Open(b, pid)
}

func dumpOptions(out io.Writer, addr process.ProcessMemoryAddress) hexdump.HexDumpOptions {
	opts := hexdump.DefaultOptions()
	opts.BytesPerLine = conf.HexdumpBytesPerLine
	opts.StartOffset = uint64(addr)
	opts.OffsetWidth = 16
	opts.Colorize = useColor(out)
	return opts
}

// withPointers turns on the pointer column of opts, resolving pointers
// against the regions of h.
func withPointers(h *process.Handle, opts hexdump.HexDumpOptions) (hexdump.HexDumpOptions, error) {
	if !showPointers {
		return opts, nil
	}
	regions, err := h.MemoryRegions()
	if err != nil {
		return opts, err
	}
	opts.ShowPointers = true
	opts.Regions = regions
	return opts, nil
}

func listFilters() ([]inspect.Filter, error) {
	var filters []inspect.Filter
	if nameFilter != "" {
		filters = append(filters, inspect.NameContains(nameFilter))
	}
	if namePattern != "" {
		re, err := regexp.Compile(namePattern)
		if err != nil {
			return nil, fmt.Errorf("invalid --pattern: %w", err)
		}
		filters = append(filters, inspect.NameMatches(re))
	}
	if cmdlinePattern != "" {
		re, err := regexp.Compile(cmdlinePattern)
		if err != nil {
			return nil, fmt.Errorf("invalid --cmdline: %w", err)
		}
		filters = append(filters, inspect.CommandLineMatches(re))
	}
	return filters, nil
}

func listCmd(cmd *cobra.Command, args []string) error {
	filters, err := listFilters()
	if err != nil {
		return err
	}
	children, descendants := cmd.Flags().Changed("children"), cmd.Flags().Changed("descendants")
	if children && descendants {
		return errors.New("--children and --descendants cannot be combined")
	}

	b, err := newBackend()
	if err != nil {
		return err
	}

	in := inspect.New(b, conf)
	var reports []inspect.Report
	switch {
	case children:
		reports, err = in.Children(cmd.Context(), process.ProcessID(childrenOf))
	case descendants:
		reports, err = in.Descendants(cmd.Context(), process.ProcessID(descendantsOf))
	default:
		reports, err = in.List(cmd.Context())
	}
	if err != nil {
		return err
	}
	reports = inspect.Select(reports, filters...)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "PID\tPPID\tNAME")
	for _, r := range reports {
		fmt.Fprintln(w, r.String())
	}
	return w.Flush()
}

func treeCmd(cmd *cobra.Command, args []string) error {
	pid, err := parsePID(args[0])
	if err != nil {
		return err
	}
	b, err := newBackend()
	if err != nil {
		return err
	}

	root, err := inspect.New(b, conf).Tree(cmd.Context(), pid)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var walk func(n *inspect.TreeNode, depth int)
	walk = func(n *inspect.TreeNode, depth int) {
		name := n.Name
		if n.Err != nil {
			name = fmt.Sprintf("<%v>", n.Err)
		}
		fmt.Fprintf(out, "%s%d %s\n", strings.Repeat("  ", depth), n.PID, name)
		for _, child := range n.Children {
			walk(child, depth+1)
		}
	}
	walk(root, 0)
	return nil
}

func regionsCmd(cmd *cobra.Command, args []string) error {
	h, err := openPID(args[0])
	if err != nil {
		return err
	}
	defer h.Close()

	regions, err := h.MemoryRegions()
	if err != nil {
		return err
	}
	if committedOnly {
		regions = lo.Filter(regions, func(r process.MemoryRegion, _ int) bool {
			return r.IsCommitted()
		})
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "BASE\tEND\tSIZE\tSTATE\tTYPE\tPROT")
	for _, r := range regions {
		fmt.Fprintf(w, "%016x\t%016x\t%s\t%s\t%s\t%s\n",
			uint64(r.Base), uint64(r.End()), humanize.IBytes(uint64(r.Size)), r.State, r.Type, r.Protect)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	var total uint64
	for _, r := range regions {
		if r.IsCommitted() {
			total += uint64(r.Size)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d regions, %s committed\n", len(regions), humanize.IBytes(total))
	return nil
}

func readCmd(cmd *cobra.Command, args []string) error {
	addr, err := parseAddress(args[1])
	if err != nil {
		return err
	}
	size, err := parseSize(args[2])
	if err != nil {
		return err
	}
	if uint64(size) > conf.ReadMaxBytes {
		return fmt.Errorf("length %s exceeds read-max-bytes (%s)", humanize.IBytes(uint64(size)), humanize.IBytes(conf.ReadMaxBytes))
	}

	h, err := openPID(args[0])
	if err != nil {
		return err
	}
	defer h.Close()

	data, err := h.ReadMemory(addr, size)
	if err != nil {
		return err
	}
	if len(data) < int(size) {
		log.Infoln("Short read:", len(data), "of", uint64(size), "bytes")
	}

	opts, err := withPointers(h, dumpOptions(cmd.OutOrStdout(), addr))
	if err != nil {
		return err
	}

	out := colorWriter(cmd.OutOrStdout())
	hexdump.DumpToWriter(out, data, opts)
	return nil
}

func scanCmd(cmd *cobra.Command, args []string) error {
	aob, err := scan.ParseAOB(args[1])
	if err != nil {
		return err
	}

	h, err := openPID(args[0])
	if err != nil {
		return err
	}
	defer h.Close()

	matches, err := scan.Scan(h, aob,
		scan.WithChunkSize(process.ProcessMemorySize(conf.ScanChunkSize)),
		scan.WithMaxResults(maxMatches))
	if err != nil {
		return err
	}

	base, err := withPointers(h, dumpOptions(cmd.OutOrStdout(), 0))
	if err != nil {
		return err
	}

	out := colorWriter(cmd.OutOrStdout())
	fmt.Fprintf(out, "Found %d matches for %s\n", len(matches), aob)

	exact := lo.EveryBy(aob.Mask, func(m byte) bool { return m == 0xFF })
	for _, match := range matches {
		fmt.Fprintf(out, "Match at %s:\n", match.ToString())

		// 16 bytes of context either side of the match
		start := match
		if start >= 16 {
			start -= 16
		}
		data, err := h.ReadMemory(start, process.ProcessMemorySize(int(match-start)+len(aob.Pattern)+16))
		if err != nil {
			fmt.Fprintf(out, "  unable to read context: %v\n", err)
			continue
		}

		opts := base
		opts.StartOffset = uint64(start)
		if exact {
			opts.HighlightPattern = aob.Pattern
		}
		hexdump.DumpToWriter(out, data, opts)
	}
	return nil
}

func selfCmd(cmd *cobra.Command, args []string) error {
	n, err := parseSize(selfBytes)
	if err != nil {
		return err
	}
	b, err := newBackend()
	if err != nil {
		return err
	}

	r, err := inspect.New(b, conf).Self(cmd.Context(), n)
	if err != nil {
		return err
	}

	out := colorWriter(cmd.OutOrStdout())
	committed := lo.CountBy(r.Regions, func(r process.MemoryRegion) bool { return r.IsCommitted() })
	fmt.Fprintf(out, "pid %d (%s): %d regions, %d committed\n", r.PID, r.Name, len(r.Regions), committed)
	fmt.Fprintf(out, "first readable region: %s\n", r.Region)
	hexdump.DumpToWriter(out, r.Data, dumpOptions(cmd.OutOrStdout(), r.Region.Base))
	return nil
}
