package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ByLCY/pictrans/codec"
	"github.com/ByLCY/pictrans/fonts"
	"github.com/ByLCY/pictrans/layout"
	"github.com/ByLCY/pictrans/pipeline"
)

const usage = "usage: pictrans [flags] outputPath inputPath width height familiesCSV fontsCSV"

func main() {
	fs := flag.NewFlagSet("pictrans", flag.ExitOnError)
	base := fs.String("base", "", "相对图片路径的根目录（默认为输入文件所在目录）")
	debug := fs.String("debug", "", "重新编码的文档 JSON 输出路径；同时在旁边写出 .layout.json")
	verbose := fs.Bool("v", false, "输出调试日志")
	timeout := fs.Duration("timeout", 0, "整体超时，0 表示不限")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), usage)
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	args, err := parseArgs(fs.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		os.Exit(2)
	}
	args.baseDir = *base
	args.debugPath = *debug

	ctx := context.Background()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}
	if err := run(ctx, args, logger); err != nil {
		logger.Error("生成图片失败", "err", err)
		os.Exit(1)
	}
}

// cliArgs holds the positional arguments plus the flags run needs.
type cliArgs struct {
	outputPath string
	inputPath  string
	width      float64
	height     float64
	fonts      []pipeline.FontSpec
	baseDir    string
	debugPath  string
}

// parseArgs validates the positional arguments. Families and resources are
// parallel CSV lists. A families argument of at most one character (empty or
// a placeholder such as "-") selects the built-in default font.
func parseArgs(pos []string) (cliArgs, error) {
	if len(pos) != 6 {
		return cliArgs{}, fmt.Errorf("需要 6 个位置参数，实际为 %d 个", len(pos))
	}
	a := cliArgs{outputPath: pos[0], inputPath: pos[1]}
	var err error
	if a.width, err = parsePixels("宽度", pos[2]); err != nil {
		return cliArgs{}, err
	}
	if a.height, err = parsePixels("高度", pos[3]); err != nil {
		return cliArgs{}, err
	}

	if len([]rune(strings.TrimSpace(pos[4]))) <= 1 {
		return a, nil
	}
	families := splitCSV(pos[4])
	resources := splitCSV(pos[5])
	if len(resources) != len(families) {
		return cliArgs{}, fmt.Errorf("字体名称 %d 个，字体资源 %d 个，数量不一致", len(families), len(resources))
	}
	for i, fam := range families {
		a.fonts = append(a.fonts, pipeline.FontSpec{Family: fam, Resource: fonts.Resource{Path: resources[i]}})
	}
	return a, nil
}

func parsePixels(name, v string) (float64, error) {
	l, err := layout.ParseLength(v)
	if err != nil {
		return 0, fmt.Errorf("无效的%s %q: %w", name, v, err)
	}
	px := l.ToPX()
	if px <= 0 {
		return 0, fmt.Errorf("%s必须为正数，实际为 %q", name, v)
	}
	return px, nil
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// run 串联读取、渲染与写出。PNG 先写入内存，成功后才创建输出文件。
func run(ctx context.Context, a cliArgs, logger *slog.Logger) error {
	data, err := os.ReadFile(a.inputPath)
	if err != nil {
		return fmt.Errorf("无法读取文档 %s: %w", a.inputPath, err)
	}
	baseDir := a.baseDir
	if baseDir == "" {
		baseDir = filepath.Dir(a.inputPath)
	}

	var png bytes.Buffer
	res, err := pipeline.Run(ctx, pipeline.Request{
		Width:    a.width,
		Height:   a.height,
		Document: data,
		Fonts:    a.fonts,
	}, &png, pipeline.Options{
		BaseDir: baseDir,
		Logger:  logger,
		Debug:   a.debugPath != "",
	})
	if err != nil {
		return err
	}

	if a.debugPath != "" {
		if err := writeDebug(res, a.debugPath); err != nil {
			return err
		}
	}
	if err := writeFile(a.outputPath, &png); err != nil {
		return fmt.Errorf("写入图片失败: %w", err)
	}
	logger.Info("已生成图片", "path", a.outputPath, "job", res.JobID)
	return nil
}

func writeDebug(res *pipeline.Result, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	doc, err := codec.EncodeDocument(res.Document)
	if err != nil {
		return fmt.Errorf("编码调试文档失败: %w", err)
	}
	if err := os.WriteFile(debugPath, doc, 0o644); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	layoutPath := strings.TrimSuffix(debugPath, filepath.Ext(debugPath)) + ".layout.json"
	if err := layout.WriteDebugJSON(res.Layout, layoutPath); err != nil {
		return fmt.Errorf("输出排版 JSON 失败: %w", err)
	}
	return nil
}

func writeFile(path string, r io.Reader) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	_, err = io.Copy(f, r)
	return err
}
