package inspect

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"procinspect/process"

	"github.com/samber/lo"
)

// Filter selects reports. Filters never match a process that could not be
// named.
type Filter func(Report) bool

// NameContains matches names containing s.
func NameContains(s string) Filter {
	return func(r Report) bool {
		return r.Err == nil && strings.Contains(r.Name, s)
	}
}

// NameMatches matches names matched by re.
func NameMatches(re *regexp.Regexp) Filter {
	return func(r Report) bool {
		return r.Err == nil && re.MatchString(r.Name)
	}
}

// CommandLineMatches matches processes whose space-joined arguments are
// matched by re. Processes without a known command line never match.
func CommandLineMatches(re *regexp.Regexp) Filter {
	return func(r Report) bool {
		return len(r.CommandLine) > 0 && re.MatchString(strings.Join(r.CommandLine, " "))
	}
}

// Select returns the reports every filter matches.
func Select(reports []Report, filters ...Filter) []Report {
	return lo.Filter(reports, func(r Report, _ int) bool {
		for _, f := range filters {
			if !f(r) {
				return false
			}
		}
		return true
	})
}

// TreeNode is a process with the processes it started.
type TreeNode struct {
	Report
	Children []*TreeNode
}

// listWithParents runs List and indexes the reports by parent. It fails when
// the backend cannot report parents.
func (i *Inspector) listWithParents(ctx context.Context) ([]Report, map[process.ProcessID][]Report, error) {
	if _, ok := i.backend.(process.ProcessInfoBackend); !ok {
		return nil, nil, process.ErrParentUnsupported
	}

	reports, err := i.List(ctx)
	if err != nil {
		return nil, nil, err
	}

	children := make(map[process.ProcessID][]Report)
	for _, r := range reports {
		// pid 0 is its own parent on some systems
		if ppid, ok := r.Parent(); ok && ppid != r.PID {
			children[ppid] = append(children[ppid], r)
		}
	}
	return reports, children, nil
}

// Children lists the processes whose parent is pid.
func (i *Inspector) Children(ctx context.Context, pid process.ProcessID) ([]Report, error) {
	_, children, err := i.listWithParents(ctx)
	if err != nil {
		return nil, err
	}
	return children[pid], nil
}

// Descendants lists every process started, directly or not, by pid in
// breadth-first order.
func (i *Inspector) Descendants(ctx context.Context, pid process.ProcessID) ([]Report, error) {
	_, children, err := i.listWithParents(ctx)
	if err != nil {
		return nil, err
	}

	var result []Report
	visited := map[process.ProcessID]bool{pid: true}
	queue := []process.ProcessID{pid}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, child := range children[current] {
			if visited[child.PID] {
				continue
			}
			visited[child.PID] = true
			result = append(result, child)
			queue = append(queue, child.PID)
		}
	}
	return result, nil
}

// Tree returns the process tree rooted at pid.
func (i *Inspector) Tree(ctx context.Context, pid process.ProcessID) (*TreeNode, error) {
	reports, children, err := i.listWithParents(ctx)
	if err != nil {
		return nil, err
	}

	root, ok := lo.Find(reports, func(r Report) bool { return r.PID == pid })
	if !ok {
		return nil, fmt.Errorf("pid %d: %w", pid, process.ErrProcessNotFound)
	}

	visited := make(map[process.ProcessID]bool)
	var build func(r Report) *TreeNode
	build = func(r Report) *TreeNode {
		visited[r.PID] = true
		node := &TreeNode{Report: r}
		for _, child := range children[r.PID] {
			if !visited[child.PID] {
				node.Children = append(node.Children, build(child))
			}
		}
		return node
	}
	return build(root), nil
}
