package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ByLCY/docbuilder/api"
	"github.com/ByLCY/docbuilder/config"
	"github.com/ByLCY/docbuilder/dsl"
	"github.com/ByLCY/docbuilder/export"
	"github.com/ByLCY/docbuilder/importer"
	"github.com/ByLCY/docbuilder/layout"
	"github.com/ByLCY/docbuilder/renderer"
	canvasrenderer "github.com/ByLCY/docbuilder/renderer/canvas"
	docxrenderer "github.com/ByLCY/docbuilder/renderer/docx"
	"github.com/ByLCY/docbuilder/store"
)

func main() {
	input := flag.String("in", "", "DSL 模板路径")
	markdown := flag.String("md", "", "Markdown 输入路径（代替 -in）")
	output := flag.String("out", "output/document.pdf", "输出路径，.pdf 或 .docx")
	debug := flag.String("debug", "", "布局调试 JSON 输出路径")
	dataJSON := flag.String("data", "", "绑定到模板的 JSON 数据")
	strict := flag.Bool("strict", false, "模板占位符缺少数据时报错")
	serve := flag.Bool("serve", false, "启动 HTTP 编辑服务")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	pdf := canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{Geometry: cfg.Geometry, Logger: logger})
	docx := docxrenderer.NewRenderer(cfg.Geometry, logger)

	if *serve {
		if err := cfg.Validate(); err != nil {
			log.Fatalf("配置无效: %v", err)
		}
		if err := runServer(cfg, pdf, docx, logger); err != nil {
			log.Fatalf("服务退出: %v", err)
		}
		return
	}

	var inputData any
	if *dataJSON != "" {
		if err := json.Unmarshal([]byte(*dataJSON), &inputData); err != nil {
			log.Fatalf("解析 data JSON 失败: %v", err)
		}
	}
	var r renderer.Renderer = pdf
	if strings.EqualFold(filepath.Ext(*output), ".docx") {
		r = docx
	}
	opts := layout.BuildOptions{
		Options: layout.Options{Measurer: pdf, Geometry: cfg.Geometry, Logger: logger},
		Strict:  *strict,
	}
	if err := run(*input, *markdown, *output, *debug, inputData, opts, r); err != nil {
		log.Fatalf("生成文档失败: %v", err)
	}
	fmt.Printf("已生成文档：%s\n", *output)
}

func runServer(cfg config.Config, pdf *canvasrenderer.Renderer, docx renderer.Renderer, logger *slog.Logger) error {
	deps := api.Deps{Measurer: pdf, PDF: pdf, Docx: docx}
	drafts, err := store.Open(cfg.DBPath, logger)
	if err != nil {
		return err
	}
	defer drafts.Close()
	deps.Drafts = drafts

	if cfg.ExportBaseURL != "" {
		client, err := export.NewClient(export.Options{
			BaseURL:    cfg.ExportBaseURL,
			CSRFHeader: cfg.CSRFHeader,
			Timeout:    cfg.ExportTimeout,
			Logger:     logger,
		})
		if err != nil {
			return err
		}
		defer client.CloseIdleConnections()
		deps.Exporter = client
	}

	srv := api.NewServer(cfg, deps, logger)
	defer srv.Close()
	logger.Info("listening", "port", cfg.Port, "drafts", cfg.DBPath, "export", cfg.ExportBaseURL)
	return http.ListenAndServe(":"+cfg.Port, srv)
}

// run 串联解析、排版与渲染。
func run(inputPath, markdownPath, outputPath, debugPath string, data any, opts layout.BuildOptions, r renderer.Renderer) error {
	if r == nil {
		return fmt.Errorf("renderer 不能为空")
	}
	e, err := buildDocument(inputPath, markdownPath, data, opts)
	if err != nil {
		return err
	}
	snap := e.Snapshot()

	if debugPath != "" {
		if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
			return fmt.Errorf("创建调试目录失败: %w", err)
		}
		if err := layout.WriteDebugJSON(snap, debugPath); err != nil {
			return fmt.Errorf("输出调试 JSON 失败: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	out, err := r.Render(&snap)
	if err != nil {
		return fmt.Errorf("渲染失败: %w", err)
	}
	if err := os.WriteFile(outputPath, out, 0o644); err != nil {
		return fmt.Errorf("写入文件失败: %w", err)
	}
	return nil
}

func buildDocument(inputPath, markdownPath string, data any, opts layout.BuildOptions) (*layout.Engine, error) {
	switch {
	case inputPath != "":
		file, err := os.Open(inputPath)
		if err != nil {
			return nil, fmt.Errorf("无法打开模板 %s: %w", inputPath, err)
		}
		defer file.Close()
		doc, err := dsl.Parse(file)
		if err != nil {
			return nil, fmt.Errorf("解析模板失败: %w", err)
		}
		e, err := layout.Build(doc, data, opts)
		if err != nil {
			return nil, fmt.Errorf("排版失败: %w", err)
		}
		return e, nil
	case markdownPath != "":
		file, err := os.Open(markdownPath)
		if err != nil {
			return nil, fmt.Errorf("无法打开 Markdown %s: %w", markdownPath, err)
		}
		defer file.Close()
		blocks, err := importer.Markdown(file)
		if err != nil {
			return nil, err
		}
		e, err := layout.New(opts.Options)
		if err != nil {
			return nil, err
		}
		if err := e.Fill(blocks); err != nil {
			return nil, fmt.Errorf("排版失败: %w", err)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("需要 -in 或 -md")
	}
}
