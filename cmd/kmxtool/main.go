// kmxtool is a CLI utility for inspecting, building and packing KMX assets.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/kmx-platformer/internal/engine/model"
	"github.com/Faultbox/kmx-platformer/pkg/formats"
	"github.com/Faultbox/kmx-platformer/pkg/math"
	"github.com/Faultbox/kmx-platformer/pkg/pack"
)

var errUsage = errors.New("invalid usage")

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	if err := run(os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, w io.Writer) error {
	command, args := args[0], args[1:]

	switch command {
	case "info":
		return cmdInfo(args, w)
	case "validate", "check":
		return cmdValidate(args, w)
	case "build":
		return cmdBuild(args, w)
	case "sample":
		return cmdSample(args, w)
	case "skin":
		return cmdSkin(args, w)
	case "pack":
		return cmdPack(args, w)
	case "list", "ls":
		return cmdList(args, w)
	case "extract", "x":
		return cmdExtract(args, w)
	case "help", "-h", "--help":
		printUsage(w)
		return nil
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage(os.Stderr)
		return errUsage
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `kmxtool - KMX skeleton and skinned mesh utility

Usage:
  kmxtool <command> [options] <args>

Commands:
  info [-mesh] <file.kmx>                        Show file contents
  validate <skeleton.kmx> [mesh.kmx]             Check files load and fit together
  build [-mesh] <source.yaml> <out.kmx>          Encode a YAML description
  sample [-anim A] [-t T] [-frames N] [-mesh M] <skeleton.kmx>
                                                 Print joint positions
  skin [-anim A] [-t T] <skeleton.kmx> <mesh.kmx> Print the skinned bounds
  pack [-root DIR] <out.kpak> <file|dir>...      Build an asset pack
  list [-n N] <file.kpak> [pattern]              List pack contents
  extract <file.kpak> <path|pattern> [output]    Extract file(s) to directory

Examples:
  kmxtool build character.yaml character.kmx
  kmxtool sample -anim run -frames 5 character.kmx
  kmxtool skin -anim idle -t 0.5 character.kmx character_mesh.kmx
  kmxtool pack -root assets assets/base.kpak assets/models`)
}

func usage(line string) error {
	fmt.Fprintln(os.Stderr, "Usage: kmxtool "+line)
	return errUsage
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func cmdInfo(args []string, w io.Writer) error {
	fs := newFlagSet("info")
	isMesh := fs.Bool("mesh", false, "Treat the file as a skinned mesh")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() < 1 {
		return usage("info [-mesh] <file.kmx>")
	}

	if *isMesh {
		mesh, err := formats.ParseSkinnedMeshFile(fs.Arg(0))
		if err != nil {
			return err
		}
		printMeshInfo(w, fs.Arg(0), mesh)
		return nil
	}

	skel, err := formats.ParseSkeletonFile(fs.Arg(0))
	if err != nil {
		return err
	}
	printSkeletonInfo(w, fs.Arg(0), skel)
	return nil
}

func printSkeletonInfo(w io.Writer, path string, skel *formats.Skeleton) {
	fmt.Fprintf(w, "Skeleton:   %s\n", path)
	fmt.Fprintf(w, "Version:    %d\n", skel.Version())
	fmt.Fprintf(w, "Size:       %d bytes\n", skel.Size())
	fmt.Fprintf(w, "Bones:      %d\n", skel.NumBones())
	fmt.Fprintf(w, "Animations: %d\n", skel.NumAnimations())

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Bones:")
	for i, b := range skel.Bones() {
		parent := "-"
		if !b.IsRoot() {
			parent = skel.Bone(int(b.Parent)).Name
		}
		fmt.Fprintf(w, "  %3d %-20s parent=%s\n", i, b.Name, parent)
	}

	if skel.NumAnimations() == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Animations:")
	for i, a := range skel.Animations() {
		var tkeys, rkeys int
		for b := 0; b < skel.NumBones(); b++ {
			kf := skel.KeyFrames(i, b)
			tkeys += kf.Translation().Len()
			rkeys += kf.Rotation().Len()
		}
		fmt.Fprintf(w, "  %3d %-20s %.3fs  translation keys=%d rotation keys=%d\n",
			i, a.Name, a.Duration, tkeys, rkeys)
	}
}

func printMeshInfo(w io.Writer, path string, mesh *formats.SkinnedMesh) {
	maxBone := int32(-1)
	for v := 0; v < mesh.NumVertices(); v++ {
		inf := mesh.Influence(v)
		for i, b := range inf.Bones {
			if inf.Weights[i] != 0 && b > maxBone {
				maxBone = b
			}
		}
	}

	fmt.Fprintf(w, "Mesh:      %s\n", path)
	fmt.Fprintf(w, "Version:   %d\n", mesh.Version())
	fmt.Fprintf(w, "Vertices:  %d\n", mesh.NumVertices())
	fmt.Fprintf(w, "Triangles: %d\n", mesh.NumIndices()/3)
	if maxBone >= 0 {
		fmt.Fprintf(w, "Bones:     needs at least %d\n", maxBone+1)
	} else {
		fmt.Fprintln(w, "Bones:     unweighted")
	}
}

func cmdValidate(args []string, w io.Writer) error {
	fs := newFlagSet("validate")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() < 1 {
		return usage("validate <skeleton.kmx> [mesh.kmx]")
	}

	skel, err := formats.ParseSkeletonFile(fs.Arg(0))
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s: OK (%d bones, %d animations)\n", fs.Arg(0), skel.NumBones(), skel.NumAnimations())

	if fs.NArg() < 2 {
		return nil
	}

	mesh, err := formats.ParseSkinnedMeshFile(fs.Arg(1))
	if err != nil {
		return err
	}
	if err := mesh.ValidateBones(skel.NumBones()); err != nil {
		return fmt.Errorf("%s: %w", fs.Arg(1), err)
	}
	if _, err := mesh.InverseBindPoses(skel.NumBones()); err != nil {
		return fmt.Errorf("%s: %w", fs.Arg(1), err)
	}
	fmt.Fprintf(w, "%s: OK (%d vertices)\n", fs.Arg(1), mesh.NumVertices())
	return nil
}

func cmdBuild(args []string, w io.Writer) error {
	fs := newFlagSet("build")
	isMesh := fs.Bool("mesh", false, "Source describes a skinned mesh")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() < 2 {
		return usage("build [-mesh] <source.yaml> <out.kmx>")
	}

	src, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	var data []byte
	if *isMesh {
		var ms formats.SkinnedMeshSource
		if err := yaml.Unmarshal(src, &ms); err != nil {
			return fmt.Errorf("parsing %s: %w", fs.Arg(0), err)
		}
		data, err = formats.EncodeSkinnedMesh(ms)
	} else {
		var ss formats.SkeletonSource
		if err := yaml.Unmarshal(src, &ss); err != nil {
			return fmt.Errorf("parsing %s: %w", fs.Arg(0), err)
		}
		data, err = formats.EncodeSkeleton(ss)
	}
	if err != nil {
		return fmt.Errorf("encoding %s: %w", fs.Arg(0), err)
	}

	if err := os.WriteFile(fs.Arg(1), data, 0644); err != nil {
		return err
	}
	fmt.Fprintf(w, "Wrote: %s (%d bytes)\n", fs.Arg(1), len(data))
	return nil
}

// resolveAnimation accepts a clip name or index.
func resolveAnimation(skel *formats.Skeleton, name string) (int, error) {
	if i := skel.AnimationIndex(name); i >= 0 {
		return i, nil
	}
	i, err := strconv.Atoi(name)
	if err != nil || i < 0 || i >= skel.NumAnimations() {
		return 0, fmt.Errorf("no animation %q (have %d)", name, skel.NumAnimations())
	}
	return i, nil
}

// inverseBindPoses loads the mesh at path, if any, and returns its inverse
// bind poses for skel. No path means identity.
func inverseBindPoses(skel *formats.Skeleton, path string) (*formats.SkinnedMesh, []math.Mat4, error) {
	if path == "" {
		return nil, nil, nil
	}
	mesh, err := formats.ParseSkinnedMeshFile(path)
	if err != nil {
		return nil, nil, err
	}
	ibp, err := mesh.InverseBindPoses(skel.NumBones())
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return mesh, ibp.Slice(), nil
}

// sampleTimes returns t alone, or frames evenly spaced times covering the
// whole clip.
func sampleTimes(duration, t float32, frames int) []float32 {
	if frames <= 1 {
		return []float32{t}
	}
	times := make([]float32, frames)
	for i := range times {
		times[i] = duration * float32(i) / float32(frames-1)
	}
	return times
}

func cmdSample(args []string, w io.Writer) error {
	fs := newFlagSet("sample")
	anim := fs.String("anim", "0", "Animation name or index")
	t := fs.Float64("t", 0, "Time in seconds")
	frames := fs.Int("frames", 0, "Sample N evenly spaced times instead of -t")
	meshPath := fs.String("mesh", "", "Apply this mesh's inverse bind poses")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() < 1 {
		return usage("sample [-anim A] [-t T] [-frames N] [-mesh M] <skeleton.kmx>")
	}

	skel, err := formats.ParseSkeletonFile(fs.Arg(0))
	if err != nil {
		return err
	}
	if skel.NumAnimations() == 0 {
		return fmt.Errorf("%s has no animations", fs.Arg(0))
	}
	ai, err := resolveAnimation(skel, *anim)
	if err != nil {
		return err
	}
	_, ibp, err := inverseBindPoses(skel, *meshPath)
	if err != nil {
		return err
	}

	times := sampleTimes(skel.Animation(ai).Duration, float32(*t), *frames)
	jobs := make([]model.Job, len(times))
	for i, ts := range times {
		jobs[i] = model.Job{Animation: ai, Time: ts, Out: make([]math.Mat4, skel.NumBones())}
	}
	if err := model.AnimateBatch(context.Background(), skel, jobs, ibp, runtime.NumCPU()); err != nil {
		return err
	}

	for _, job := range jobs {
		fmt.Fprintf(w, "%s t=%.3f\n", skel.Animation(ai).Name, job.Time)
		for b, p := range model.JointPositions(job.Out) {
			fmt.Fprintf(w, "  %-20s % .4f % .4f % .4f\n", skel.Bone(b).Name, p.X, p.Y, p.Z)
		}
	}
	return nil
}

func cmdSkin(args []string, w io.Writer) error {
	fs := newFlagSet("skin")
	anim := fs.String("anim", "0", "Animation name or index")
	t := fs.Float64("t", 0, "Time in seconds")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() < 2 {
		return usage("skin [-anim A] [-t T] <skeleton.kmx> <mesh.kmx>")
	}

	skel, err := formats.ParseSkeletonFile(fs.Arg(0))
	if err != nil {
		return err
	}
	mesh, ibp, err := inverseBindPoses(skel, fs.Arg(1))
	if err != nil {
		return err
	}
	if err := mesh.ValidateBones(skel.NumBones()); err != nil {
		return fmt.Errorf("%s: %w", fs.Arg(1), err)
	}

	poses := make([]math.Mat4, skel.NumBones())
	label := "bind pose"
	if skel.NumAnimations() > 0 {
		ai, err := resolveAnimation(skel, *anim)
		if err != nil {
			return err
		}
		job := model.Job{Animation: ai, Time: float32(*t), Out: poses}
		if err := model.AnimateBatch(context.Background(), skel, []model.Job{job}, ibp, 1); err != nil {
			return err
		}
		label = fmt.Sprintf("%s t=%.3f", skel.Animation(ai).Name, *t)
	} else {
		for i := range poses {
			poses[i] = math.Identity()
		}
	}

	out := make([]model.Vertex, mesh.NumVertices())
	bounds, err := model.SkinMesh(mesh, poses, out)
	if err != nil {
		return err
	}

	size := bounds.Size()
	fmt.Fprintf(w, "Pose:   %s\n", label)
	fmt.Fprintf(w, "Min:    % .4f % .4f % .4f\n", bounds.Min.X, bounds.Min.Y, bounds.Min.Z)
	fmt.Fprintf(w, "Max:    % .4f % .4f % .4f\n", bounds.Max.X, bounds.Max.Y, bounds.Max.Z)
	fmt.Fprintf(w, "Size:   % .4f % .4f % .4f\n", size.X, size.Y, size.Z)
	return nil
}

func cmdPack(args []string, w io.Writer) error {
	fs := newFlagSet("pack")
	root := fs.String("root", ".", "Store paths relative to this directory")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() < 2 {
		return usage("pack [-root DIR] <out.kpak> <file|dir>...")
	}

	out := fs.Arg(0)
	var files []string
	for _, arg := range fs.Args()[1:] {
		err := filepath.WalkDir(arg, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && filepath.Clean(path) != filepath.Clean(out) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	pw, err := pack.Create(out)
	if err != nil {
		return err
	}
	for _, path := range files {
		rel, err := filepath.Rel(*root, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			pw.Close()
			return fmt.Errorf("%s is outside %s", path, *root)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			pw.Close()
			return err
		}
		if err := pw.Add(filepath.ToSlash(rel), data); err != nil {
			pw.Close()
			return err
		}
		fmt.Fprintf(w, "Added: %s (%d bytes)\n", filepath.ToSlash(rel), len(data))
	}
	if err := pw.Close(); err != nil {
		return err
	}

	fmt.Fprintf(w, "Wrote: %s (%d files)\n", out, len(files))
	return nil
}

func cmdList(args []string, w io.Writer) error {
	fs := newFlagSet("list")
	limit := fs.Int("n", 0, "Limit output to N files (0 = all)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() < 1 {
		return usage("list [-n N] <file.kpak> [pattern]")
	}

	archive, err := pack.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer archive.Close()

	pattern := ""
	if fs.NArg() > 1 {
		pattern = strings.ToLower(fs.Arg(1))
	}

	count := 0
	for _, f := range archive.List() {
		if pattern != "" && !matches(pattern, f) && !strings.Contains(f, pattern) {
			continue
		}
		entry, _ := archive.Stat(f)
		fmt.Fprintf(w, "%10d  %s\n", entry.Size, f)
		count++
		if *limit > 0 && count >= *limit {
			break
		}
	}

	if pattern != "" {
		fmt.Fprintf(os.Stderr, "\n(%d files matched)\n", count)
	}
	return nil
}

// matches reports whether the base name of f matches a glob pattern.
func matches(pattern, f string) bool {
	ok, _ := filepath.Match(pattern, filepath.Base(f))
	return ok
}

func cmdExtract(args []string, w io.Writer) error {
	fs := newFlagSet("extract")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() < 2 {
		return usage("extract <file.kpak> <path|pattern> [output_dir]")
	}

	name := fs.Arg(1)
	outputDir := "."
	if fs.NArg() > 2 {
		outputDir = fs.Arg(2)
	}

	archive, err := pack.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer archive.Close()

	// Single file
	if !strings.ContainsAny(name, "*?[") {
		data, err := archive.Read(name)
		if err != nil {
			return err
		}
		outputPath := filepath.Join(outputDir, filepath.Base(name))
		if err := writeFile(outputPath, data); err != nil {
			return err
		}
		fmt.Fprintf(w, "Extracted: %s (%d bytes)\n", outputPath, len(data))
		return nil
	}

	pattern := strings.ToLower(name)
	extracted := 0
	for _, f := range archive.List() {
		if !matches(pattern, f) {
			continue
		}
		data, err := archive.Read(f)
		if err != nil {
			return err
		}
		// Keep the stored directory structure
		outputPath := filepath.Join(outputDir, filepath.FromSlash(f))
		if err := writeFile(outputPath, data); err != nil {
			return err
		}
		fmt.Fprintf(w, "Extracted: %s\n", outputPath)
		extracted++
	}

	fmt.Fprintf(os.Stderr, "\nExtracted %d files\n", extracted)
	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
