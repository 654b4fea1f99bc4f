package gitops

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

var validRef = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._/-]*$`)

// CloneShallow clones repo into dest without blobs or trees beyond the tip
// (`--filter=tree:0`). When ref is non-empty that branch or tag is checked
// out instead of the default branch.
func CloneShallow(ctx context.Context, repo, ref, dest string) error {
	if repo == "" || strings.HasPrefix(repo, "-") {
		return fmt.Errorf("invalid repository %q", repo)
	}
	args := []string{"clone", "--filter=tree:0"}
	if ref != "" {
		if !validRef.MatchString(ref) || strings.Contains(ref, "..") {
			return fmt.Errorf("invalid ref %q", ref)
		}
		args = append(args, "--branch", ref)
	}
	args = append(args, "--", repo, dest)
	cmd := exec.CommandContext(ctx, "git", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git clone: %s: %w", out, err)
	}
	return nil
}

// Revision returns the commit checked out in repoDir.
func Revision(ctx context.Context, repoDir string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "HEAD")
	cmd.Dir = repoDir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git rev-parse HEAD: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
