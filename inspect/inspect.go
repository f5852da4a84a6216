// Package inspect drives the process package over every process on the host.
package inspect

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"runtime"
	"sort"
	"sync"

	"procinspect/config"
	"procinspect/process"

	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/samber/lo"
)

var log = logger.NewLogger("inspect")

// Report is the outcome of inspecting one process. Exactly one of Name and
// Err is meaningful.
type Report struct {
	PID  process.ProcessID
	Name string
	Err  error

	// PPID and CommandLine are filled when the backend reports them, whether
	// or not the process could be opened.
	PPID        process.ProcessID
	CommandLine []string
	hasParent   bool
}

// Parent returns the parent PID and whether the backend reported one.
func (r Report) Parent() (process.ProcessID, bool) {
	return r.PPID, r.hasParent
}

func (r Report) String() string {
	ppid := "-"
	if r.hasParent {
		ppid = fmt.Sprint(r.PPID)
	}
	if r.Err != nil {
		return fmt.Sprintf("%d\t%s\t<%v>", r.PID, ppid, r.Err)
	}
	return fmt.Sprintf("%d\t%s\t%s", r.PID, ppid, r.Name)
}

// Inspector inspects processes through a Backend.
type Inspector struct {
	backend  process.Backend
	enumOpts []process.EnumOption
	workers  int
	pid      func() process.ProcessID
}

// Option configures an Inspector
type Option func(*Inspector)

// WithWorkers overrides the number of processes inspected concurrently.
func WithWorkers(n int) Option {
	return func(i *Inspector) {
		if n > 0 {
			i.workers = n
		}
	}
}

// WithSelfPID overrides the identifier Self treats as the current process.
func WithSelfPID(pid process.ProcessID) Option {
	return func(i *Inspector) {
		i.pid = func() process.ProcessID { return pid }
	}
}

// New creates an Inspector. cfg may be nil, in which case the defaults apply.
func New(b process.Backend, cfg *config.Config, opts ...Option) *Inspector {
	if cfg == nil {
		cfg = config.Default()
	}
	i := &Inspector{
		backend:  b,
		enumOpts: cfg.EnumOptions(),
		workers:  cfg.Workers,
		pid:      func() process.ProcessID { return process.ProcessID(os.Getpid()) },
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.workers <= 0 {
		i.workers = runtime.NumCPU()
	}
	return i
}

// List enumerates every process and resolves its name. Failing to inspect a
// single process is recorded in its report; only a failed enumeration or a
// cancelled context fails the batch. Reports are ordered by PID.
func (i *Inspector) List(ctx context.Context) ([]Report, error) {
	pids, err := process.EnumerateProcesses(i.backend, i.enumOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate processes: %w", err)
	}

	log.Debugln("Inspecting", len(pids), "processes with", i.workers, "workers")

	sem := make(chan struct{}, i.workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	reports := make([]Report, 0, len(pids))

dispatch:
	for _, pid := range pids {
		select {
		case <-ctx.Done():
			break dispatch
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(pid process.ProcessID) {
			defer func() {
				<-sem
				wg.Done()
			}()

			r := i.inspect(pid)

			mu.Lock()
			reports = append(reports, r)
			mu.Unlock()
		}(pid)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(reports, func(a, b int) bool { return reports[a].PID < reports[b].PID })

	failed := lo.CountBy(reports, func(r Report) bool { return r.Err != nil })
	log.Infoln("Inspected", len(reports), "processes,", failed, "could not be opened or named")

	return reports, nil
}

func (i *Inspector) inspect(pid process.ProcessID) Report {
	r := Report{PID: pid}

	if info, err := process.QueryInfo(i.backend, pid); err == nil {
		r.PPID, r.CommandLine, r.hasParent = info.ParentPID, info.CommandLine, true
	} else if !errors.Is(err, process.ErrParentUnsupported) {
		log.Debugln("No parent for", pid, err)
	}

	h, err := process.Open(i.backend, pid)
	if err != nil {
		r.Err = err
		return r
	}
	defer h.Close()

	if r.Name, err = h.Name(); err != nil {
		r.Err = err
	}
	return r
}

// Find lists the processes whose name contains name. Processes that could not
// be named never match.
func (i *Inspector) Find(ctx context.Context, name string) ([]Report, error) {
	reports, err := i.List(ctx)
	if err != nil {
		return nil, err
	}
	return Select(reports, NameContains(name)), nil
}

// FindPattern lists the processes whose name matches re.
func (i *Inspector) FindPattern(ctx context.Context, re *regexp.Regexp) ([]Report, error) {
	reports, err := i.List(ctx)
	if err != nil {
		return nil, err
	}
	return Select(reports, NameMatches(re)), nil
}

// SelfReport is the result of the round trip against the current process.
type SelfReport struct {
	PID     process.ProcessID
	Name    string
	Regions []process.MemoryRegion
	// Region is the first committed readable region, and Data the bytes
	// read from its base
	Region process.MemoryRegion
	Data   []byte
}

// ErrNoReadableRegion is returned by Self when the walk found nothing to read.
var ErrNoReadableRegion = errors.New("no committed readable region")

// Self opens the current process, resolves its name, walks its regions and
// reads up to n bytes from the first committed readable region.
func (i *Inspector) Self(ctx context.Context, n process.ProcessMemorySize) (*SelfReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pid := i.pid()
	h, err := process.Open(i.backend, pid)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	report := &SelfReport{PID: pid}

	if report.Name, err = h.Name(); err != nil {
		return nil, err
	}

	if report.Regions, err = h.MemoryRegions(); err != nil {
		return nil, err
	}

	region, ok := lo.Find(report.Regions, func(r process.MemoryRegion) bool {
		return r.IsCommitted() && r.IsReadable()
	})
	if !ok {
		return nil, ErrNoReadableRegion
	}
	report.Region = region

	if n > region.Size {
		n = region.Size
	}
	if report.Data, err = h.ReadMemory(region.Base, n); err != nil {
		return nil, err
	}

	log.Debugln("Self check read", len(report.Data), "bytes from", region.Base.ToString())
	return report, nil
}
