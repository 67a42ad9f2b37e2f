package layout

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/ByLCY/furigana/binding"
	"github.com/ByLCY/furigana/dsl"
	"github.com/ByLCY/furigana/internal/log"
	"github.com/ByLCY/furigana/markup"
)

const (
	blockSpacing     = 3.0
	defaultRuleWidth = 0.3
	defaultFont      = "Body"
	defaultTextPt    = 12.0
)

var defaultColor = Color{R: 30, G: 30, B: 30}

// Build 根据 DSL AST 生成页面、注音文本块与分隔线的布局结果。
func Build(doc *dsl.Document, data any, opts BuildOptions) (*Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("文档为空")
	}
	if opts.Typesetter == nil {
		return nil, ErrNoTypesetter
	}

	res, err := collectResources(doc)
	if err != nil {
		return nil, err
	}
	meta := collectMeta(doc)
	pageSection := firstPage(doc)
	if pageSection == nil {
		return nil, ErrNoPage
	}

	pages, err := buildPages(pageSection, res, data, opts)
	if err != nil {
		return nil, err
	}
	log.Info(log.CatLayout, "document laid out", "pages", len(pages), "fonts", len(res.Fonts), "styles", len(res.Styles))

	return &Result{
		Pages:     pages,
		Resources: res,
		Meta:      meta,
	}, nil
}

func buildPages(section *dsl.PageSection, res ResourceSet, data any, opts BuildOptions) ([]Page, error) {
	width, height, err := resolvePageSize(section.Size, section.Params)
	if err != nil {
		return nil, err
	}
	if section.Block == nil {
		return nil, fmt.Errorf("page 段落缺少内容")
	}

	margin := resolveMargin(section.Params)
	metrics := opts.Metrics
	if metrics.TextSize <= 0 {
		metrics = DefaultMetrics(defaultTextPt * PtToMm)
	}
	ctx := &flowContext{
		collector: newPageCollector(width, height, margin),
		res:       res,
		data:      data,
		opts:      opts,
		metrics:   metrics,
		fonts:     map[fontKey]Fonts{},
	}
	ctx.cursorY = ctx.collector.contentTop()

	if err := ctx.processBlock(section.Block); err != nil {
		return nil, err
	}
	return ctx.collector.pages(), nil
}

type fontKey struct {
	name    string
	metrics Metrics
}

// flowContext 保存自上而下堆叠文本块时的游标与排版依赖。
type flowContext struct {
	collector *pageCollector
	cursorY   float64
	res       ResourceSet
	data      any
	opts      BuildOptions
	metrics   Metrics
	fonts     map[fontKey]Fonts
}

// processBlock 依次处理 page 内的 text、rule、space 与 page-break 命令。
func (ctx *flowContext) processBlock(block *dsl.Block) error {
	for _, stmt := range block.Statements {
		if stmt.Command == nil {
			continue
		}
		cmd := stmt.Command
		var err error
		switch strings.ToLower(cmd.Name) {
		case "text":
			err = ctx.handleText(cmd)
		case "rule":
			ctx.handleRule(cmd)
		case "space":
			ctx.handleSpace(cmd)
		case "page-break":
			ctx.pageBreak()
		default:
			log.Warn(log.CatLayout, "unknown page command ignored", "name", cmd.Name, "line", cmd.Pos.Line)
		}
		if err != nil {
			return fmt.Errorf("第 %d 行 %s: %w", cmd.Pos.Line, cmd.Name, err)
		}
	}
	return nil
}

func (ctx *flowContext) handleText(cmd *dsl.Command) error {
	if cmd.Block == nil {
		return fmt.Errorf("text 语句缺少文本块")
	}
	styleName, attrs := parseArgs(cmd.Args, true)
	attrs = mergeStyleAttributes(styleName, attrs, ctx.res.Styles)
	content := extractText(cmd.Block)
	if content == "" {
		return fmt.Errorf("text 语句缺少文本内容")
	}
	content = binding.Interpolate(content, ctx.data)

	tb, model, err := ctx.composeTextBlock(attrs, content)
	if err != nil {
		return err
	}
	maxLines := parseMaxLines(attrs["max-lines"])
	lines := model.Visible(maxLines)
	tb.Overflow = len(lines) < len(model.Lines)
	log.Debug(log.CatLayout, "text block laid out", "lines", len(model.Lines), "visible", len(lines), "width", tb.Width)

	ctx.placeLines(tb, lines)
	return nil
}

// placeLines 将行写入当前页，放不下的行移到下一页。空页至少放一行，避免死循环。
func (ctx *flowContext) placeLines(tb TextBlock, lines []Line) {
	lh := tb.Metrics.LineHeight()
	if len(lines) == 0 || lh <= 0 {
		return
	}
	for len(lines) > 0 {
		n := int(math.Floor((ctx.collector.contentBottom() - ctx.cursorY) / lh))
		if n < 1 {
			if !ctx.collector.curr().empty() {
				ctx.pageBreak()
				continue
			}
			n = 1
		}
		n = min(n, len(lines))
		part := tb
		part.Y = ctx.cursorY
		part.Lines = lines[:n]
		part.Height = Model{Lines: part.Lines}.Height(tb.Metrics, 0)
		ctx.collector.curr().blocks = append(ctx.collector.curr().blocks, part)
		ctx.cursorY += part.Height
		lines = lines[n:]
		if len(lines) > 0 {
			ctx.pageBreak()
		}
	}
	ctx.cursorY += blockSpacing
}

// composeTextBlock 解析文本块属性并完成排版，返回的块尚未分页。
func (ctx *flowContext) composeTextBlock(attrs map[string]string, content string) (TextBlock, Model, error) {
	fontName := attrs["font"]
	if fontName == "" {
		fontName = defaultFont
	}
	fontRes, err := resolveFontResource(fontName, ctx.res)
	if err != nil {
		return TextBlock{}, Model{}, err
	}
	metrics := resolveMetrics(attrs, ctx.metrics)
	fonts, err := ctx.fontsFor(fontRes, metrics)
	if err != nil {
		return TextBlock{}, Model{}, err
	}

	contentWidth := ctx.collector.contentWidth()
	width := contentWidth
	switch v := strings.TrimSpace(attrs["width"]); {
	case v == "":
	case strings.EqualFold(v, "auto"):
		width = FitWidth(content, fonts, contentWidth)
	default:
		if w := parseDimension(v, contentWidth); w > 0 && w <= contentWidth {
			width = w
		}
	}

	align := ParseAlign(attrs["align"])
	model := ctx.opts.Cache.Layout(content, Constraints{MaxWidth: width, Align: align}, fonts)
	margin := ctx.collector.margin
	tb := TextBlock{
		Source:  content,
		Plain:   markup.Strip(content),
		X:       margin.Left + AlignOffset(width, contentWidth, align),
		Width:   width,
		Font:    fontRes.Name,
		Color:   resolveColor(attrs["color"], ctx.res),
		Metrics: metrics,
		Align:   align,
	}
	return tb, model, nil
}

func (ctx *flowContext) fontsFor(font FontResource, metrics Metrics) (Fonts, error) {
	key := fontKey{name: font.Name, metrics: metrics}
	if f, ok := ctx.fonts[key]; ok {
		return f, nil
	}
	f, err := ctx.opts.Typesetter.Fonts(font, metrics)
	if err != nil {
		return Fonts{}, fmt.Errorf("加载字体 %s 失败: %w", font.Name, err)
	}
	if f.TextSize <= 0 {
		f.TextSize = metrics.TextSize
	}
	if f.ID == "" {
		f.ID = fmt.Sprintf("%s@%g/%g", font.Name, metrics.TextSize, metrics.GlossSize)
	}
	ctx.fonts[key] = f
	return f, nil
}

func (ctx *flowContext) handleRule(cmd *dsl.Command) {
	_, attrs := parseArgs(cmd.Args, false)
	contentWidth := ctx.collector.contentWidth()
	length := contentWidth
	if v := attrs["length"]; v != "" {
		if l := parseDimension(v, contentWidth); l > 0 && l <= contentWidth {
			length = l
		}
	}
	thickness := defaultRuleWidth
	if l, ok := ParseLength(attrs["thickness"]); ok && l.MM() > 0 {
		thickness = l.MM()
	}
	ctx.ensureSpace(blockSpacing)
	x := ctx.collector.margin.Left + AlignOffset(length, contentWidth, ParseAlign(attrs["align"]))
	acc := ctx.collector.curr()
	acc.rules = append(acc.rules, Rule{
		X1:    x,
		X2:    x + length,
		Y:     ctx.cursorY,
		Color: resolveColor(attrs["color"], ctx.res),
		Width: thickness,
	})
	ctx.cursorY += blockSpacing
}

func (ctx *flowContext) handleSpace(cmd *dsl.Command) {
	if len(cmd.Args) == 0 {
		ctx.cursorY += blockSpacing
		return
	}
	if l, ok := ParseLength(cmd.Args[0].Value); ok && l.MM() > 0 {
		ctx.cursorY += l.MM()
	}
	if ctx.cursorY > ctx.collector.contentBottom() {
		ctx.pageBreak()
	}
}

func (ctx *flowContext) ensureSpace(height float64) {
	if ctx.cursorY+height <= ctx.collector.contentBottom() {
		return
	}
	ctx.pageBreak()
}

func (ctx *flowContext) pageBreak() {
	ctx.collector.newPage()
	ctx.cursorY = ctx.collector.contentTop()
	log.Debug(log.CatLayout, "page break", "page", len(ctx.collector.accs))
}

type pageAccumulator struct {
	blocks []TextBlock
	rules  []Rule
}

func (p *pageAccumulator) empty() bool {
	return len(p.blocks) == 0 && len(p.rules) == 0
}

type pageCollector struct {
	width   float64
	height  float64
	margin  Margin
	accs    []*pageAccumulator
	current int
}

func newPageCollector(width, height float64, margin Margin) *pageCollector {
	pc := &pageCollector{
		width:  width,
		height: height,
		margin: margin,
	}
	pc.newPage()
	return pc
}

func (pc *pageCollector) newPage() *pageAccumulator {
	acc := &pageAccumulator{}
	pc.accs = append(pc.accs, acc)
	pc.current = len(pc.accs) - 1
	return acc
}

func (pc *pageCollector) curr() *pageAccumulator {
	if len(pc.accs) == 0 {
		return pc.newPage()
	}
	return pc.accs[pc.current]
}

func (pc *pageCollector) contentTop() float64    { return pc.margin.Top }
func (pc *pageCollector) contentBottom() float64 { return pc.height - pc.margin.Bottom }
func (pc *pageCollector) contentWidth() float64 {
	return pc.width - pc.margin.Left - pc.margin.Right
}

func (pc *pageCollector) pages() []Page {
	out := make([]Page, len(pc.accs))
	for i, acc := range pc.accs {
		out[i] = Page{
			Width:  pc.width,
			Height: pc.height,
			Margin: pc.margin,
			Blocks: acc.blocks,
			Rules:  acc.rules,
		}
	}
	return out
}

func collectResources(doc *dsl.Document) (ResourceSet, error) {
	res := ResourceSet{
		Fonts:  map[string]FontResource{},
		Colors: map[string]Color{},
		Styles: map[string]StyleDef{},
	}
	rawStyles := map[string]StyleDef{}

	for _, section := range doc.Sections {
		if section.Resources == nil || section.Resources.Block == nil {
			continue
		}
		for _, stmt := range section.Resources.Block.Statements {
			if stmt.Command == nil {
				continue
			}
			switch stmt.Command.Name {
			case "font":
				font := parseFontResource(stmt.Command)
				if font.Name != "" {
					res.Fonts[font.Name] = font
				}
			case "color":
				name, value := parseColorResource(stmt.Command)
				if name == "" || value == "" {
					continue
				}
				c, err := parseColor(value)
				if err != nil {
					return res, err
				}
				res.Colors[name] = c
			case "style":
				style := parseStyleResource(stmt.Command)
				if style.Name != "" {
					rawStyles[style.Name] = style
				}
			}
		}
	}

	if len(res.Fonts) == 0 {
		res.Fonts[defaultFont] = FontResource{
			Name:       defaultFont,
			Src:        "builtin:go",
			Bold:       "builtin:go-bold",
			Italic:     "builtin:go-italic",
			BoldItalic: "builtin:go-bold-italic",
			Family:     defaultFont,
		}
	}

	resolved, err := resolveStyles(rawStyles)
	if err != nil {
		return res, err
	}
	res.Styles = resolved
	return res, nil
}

func collectMeta(doc *dsl.Document) DocumentMeta {
	meta := DocumentMeta{Creator: "Furigana"}
	for _, section := range doc.Sections {
		if section.Meta == nil || section.Meta.Block == nil {
			continue
		}
		for _, stmt := range section.Meta.Block.Statements {
			if stmt.Assignment == nil {
				continue
			}
			switch strings.ToLower(stmt.Assignment.Key) {
			case "title":
				meta.Title = valueToString(stmt.Assignment.Value)
			case "author":
				meta.Author = valueToString(stmt.Assignment.Value)
			case "subject":
				meta.Subject = valueToString(stmt.Assignment.Value)
			case "creator":
				meta.Creator = valueToString(stmt.Assignment.Value)
			case "keywords":
				meta.Keywords = valueToStringSlice(stmt.Assignment.Value)
			}
		}
	}
	return meta
}

func parseFontResource(cmd *dsl.Command) FontResource {
	if len(cmd.Args) == 0 {
		return FontResource{}
	}
	font := FontResource{
		Name:   cmd.Args[0].Value,
		Family: cmd.Args[0].Value,
	}
	if cmd.Block == nil {
		return font
	}
	for _, stmt := range cmd.Block.Statements {
		if stmt.Assignment == nil {
			continue
		}
		val := valueToString(stmt.Assignment.Value)
		switch stmt.Assignment.Key {
		case "src":
			font.Src = val
		case "bold":
			font.Bold = val
		case "italic":
			font.Italic = val
		case "bold-italic":
			font.BoldItalic = val
		case "family":
			font.Family = val
		case "fallback":
			font.Fallback = val
		}
	}
	return font
}

func parseStyleResource(cmd *dsl.Command) StyleDef {
	if len(cmd.Args) == 0 {
		return StyleDef{}
	}
	style := StyleDef{
		Name:  cmd.Args[0].Value,
		Props: map[string]string{},
	}
	if len(cmd.Args) >= 3 && strings.EqualFold(cmd.Args[1].Value, "extends") {
		style.Extends = cmd.Args[2].Value
	}
	if cmd.Block == nil {
		return style
	}
	for _, stmt := range cmd.Block.Statements {
		if stmt.Assignment == nil {
			continue
		}
		if val := valueToString(stmt.Assignment.Value); val != "" {
			style.Props[stmt.Assignment.Key] = val
		}
	}
	return style
}

func resolveStyles(styles map[string]StyleDef) (map[string]StyleDef, error) {
	resolved := map[string]StyleDef{}
	visiting := map[string]bool{}

	var dfs func(name string) (StyleDef, error)
	dfs = func(name string) (StyleDef, error) {
		if style, ok := resolved[name]; ok {
			return style, nil
		}
		style, ok := styles[name]
		if !ok {
			return StyleDef{}, fmt.Errorf("style %s 未定义", name)
		}
		if visiting[name] {
			return StyleDef{}, fmt.Errorf("style 继承存在循环：%s", name)
		}
		visiting[name] = true

		props := map[string]string{}
		if style.Extends != "" {
			parent, err := dfs(style.Extends)
			if err != nil {
				return StyleDef{}, err
			}
			for k, v := range parent.Props {
				props[k] = v
			}
		}
		for k, v := range style.Props {
			props[k] = v
		}
		style.Props = props
		resolved[name] = style
		delete(visiting, name)
		return style, nil
	}

	for name := range styles {
		if _, err := dfs(name); err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

func parseColorResource(cmd *dsl.Command) (string, string) {
	if len(cmd.Args) == 0 {
		return "", ""
	}
	name := cmd.Args[0].Value
	value := ""
	if len(cmd.Args) > 1 {
		value = cmd.Args[len(cmd.Args)-1].Value
	}
	return name, value
}

var pagePresets = map[string][2]float64{
	"A4": {210, 297},
	"A5": {148, 210},
	"A6": {105, 148},
	"B5": {176, 250},
}

func resolvePageSize(size string, params []*dsl.Arg) (float64, float64, error) {
	base, ok := pagePresets[strings.ToUpper(size)]
	if !ok {
		return 0, 0, fmt.Errorf("暂不支持的纸张尺寸：%s", size)
	}
	width, height := base[0], base[1]
	for _, p := range params {
		if p.Value == "landscape" {
			width, height = height, width
		}
	}
	return width, height, nil
}

// resolveMargin 读取 margin 之后最多四个长度，语义同 CSS：1 个为四边，2 个为上下/左右，
// 3 个为上/左右/下，4 个为上/右/下/左。默认四边 20mm。
func resolveMargin(params []*dsl.Arg) Margin {
	margin := Margin{Top: 20, Right: 20, Bottom: 20, Left: 20}
	for i, p := range params {
		if p.Value != "margin" {
			continue
		}
		var vals []float64
		for j := i + 1; j < len(params) && len(vals) < 4; j++ {
			l, ok := ParseLength(params[j].Value)
			if !ok {
				break
			}
			vals = append(vals, l.MM())
		}
		switch len(vals) {
		case 1:
			v := vals[0]
			margin = Margin{Top: v, Right: v, Bottom: v, Left: v}
		case 2:
			margin = Margin{Top: vals[0], Right: vals[1], Bottom: vals[0], Left: vals[1]}
		case 3:
			margin = Margin{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: vals[1]}
		case 4:
			margin = Margin{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: vals[3]}
		}
	}
	return margin
}

func firstPage(doc *dsl.Document) *dsl.PageSection {
	for _, section := range doc.Sections {
		if section.Page != nil {
			return section.Page
		}
	}
	return nil
}

// parseArgs 把 `Style key value key value` 拆成样式名与属性表。
// 参数个数为奇数时第一个标识符视为样式名。
func parseArgs(args []*dsl.Arg, allowStyle bool) (string, map[string]string) {
	result := map[string]string{}
	if len(args) == 0 {
		return "", result
	}
	cursor := 0
	var style string
	if allowStyle && len(args)%2 == 1 && args[0].Type == "Ident" {
		style = args[0].Value
		cursor = 1
	}
	for cursor < len(args)-1 {
		result[args[cursor].Value] = args[cursor+1].Value
		cursor += 2
	}
	return style, result
}

func mergeStyleAttributes(style string, inline map[string]string, styles map[string]StyleDef) map[string]string {
	out := make(map[string]string)
	if s, ok := styles[style]; ok {
		for k, v := range s.Props {
			out[k] = v
		}
	} else if style != "" {
		log.Warn(log.CatLayout, "unknown style", "style", style)
	}
	for k, v := range inline {
		out[k] = v
	}
	return out
}

func extractText(block *dsl.Block) string {
	if block == nil {
		return ""
	}
	var builder strings.Builder
	for _, stmt := range block.Statements {
		if stmt.Text != nil {
			builder.WriteString(string(*stmt.Text))
		}
	}
	return builder.String()
}

// resolveMetrics 读取 size、gloss-size 与 line-spacing。给出 size 时其余值按正文字号推导，
// 否则从 base 开始。
func resolveMetrics(attrs map[string]string, base Metrics) Metrics {
	m := base
	if l, ok := ParseLength(attrs["size"]); ok && l.MM() > 0 {
		m = DefaultMetrics(l.MM())
	}
	if l, ok := ParseLength(attrs["gloss-size"]); ok && l.MM() > 0 {
		m.GlossSize = l.MM()
		m.LineSpacing = m.GlossSize / 2
	}
	if v := attrs["line-spacing"]; v != "" {
		if s, ok := ParseSpacing(v); ok {
			m.LineSpacing = s.Resolve(m.GlossSize)
		}
	}
	return m
}

func parseMaxLines(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func resolveFontResource(name string, res ResourceSet) (FontResource, error) {
	if font, ok := res.Fonts[name]; ok {
		return font, nil
	}
	if font, ok := res.Fonts[defaultFont]; ok {
		return font, nil
	}
	names := make([]string, 0, len(res.Fonts))
	for n := range res.Fonts {
		names = append(names, n)
	}
	if len(names) == 0 {
		return FontResource{}, fmt.Errorf("字体 %s 未定义，且没有可用的默认字体", name)
	}
	sort.Strings(names)
	return res.Fonts[names[0]], nil
}

func resolveColor(value string, res ResourceSet) Color {
	if value == "" {
		return defaultColor
	}
	if c, ok := res.Colors[value]; ok {
		return c
	}
	if strings.HasPrefix(value, "#") {
		if c, err := parseColor(value); err == nil {
			return c
		}
	}
	return defaultColor
}

func parseColor(value string) (Color, error) {
	value = strings.TrimPrefix(value, "#")
	switch len(value) {
	case 3:
		return Color{
			R: mustHex(strings.Repeat(value[0:1], 2)),
			G: mustHex(strings.Repeat(value[1:2], 2)),
			B: mustHex(strings.Repeat(value[2:3], 2)),
		}, nil
	case 6, 8:
		return Color{
			R: mustHex(value[0:2]),
			G: mustHex(value[2:4]),
			B: mustHex(value[4:6]),
		}, nil
	default:
		return Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
	}
}

func mustHex(s string) int {
	v, _ := strconv.ParseInt(s, 16, 64)
	return int(v)
}

// parseDimension 支持百分比（相对 reference）与带单位长度，失败返回 0。
func parseDimension(value string, reference float64) float64 {
	value = strings.TrimSpace(value)
	if num, ok := strings.CutSuffix(value, "%"); ok {
		if f, err := strconv.ParseFloat(num, 64); err == nil {
			return reference * f / 100
		}
		return 0
	}
	if l, ok := ParseLength(value); ok {
		return l.MM()
	}
	return 0
}

func valueToString(val *dsl.Value) string {
	if val == nil {
		return ""
	}
	switch {
	case val.String != nil:
		return string(*val.String)
	case val.Number != nil:
		return *val.Number
	case val.Color != nil:
		return *val.Color
	case val.Ident != nil:
		return *val.Ident
	default:
		return ""
	}
}

func valueToStringSlice(val *dsl.Value) []string {
	if val == nil {
		return nil
	}
	if val.Array != nil {
		out := make([]string, 0, len(val.Array.Values))
		for _, item := range val.Array.Values {
			if s := valueToString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := valueToString(val); s != "" {
		return []string{s}
	}
	return nil
}
