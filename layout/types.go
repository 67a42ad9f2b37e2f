package layout

// 该文件定义文档排版结果与资源描述，供布局计算、渲染与调试 JSON 共用。

// Result 保存排版后的页面与资源信息。
type Result struct {
	Pages     []Page       `json:"pages"`
	Resources ResourceSet  `json:"resources"`
	Meta      DocumentMeta `json:"meta"`
}

// ResourceSet 记录解析出的字体、颜色与样式定义。
type ResourceSet struct {
	Fonts  map[string]FontResource `json:"fonts"`
	Colors map[string]Color        `json:"colors"`
	Styles map[string]StyleDef     `json:"styles"`
}

// FontResource 描述字体资源。src 可以是文件路径、builtin:<name>（内置 Go 字体或注入的字节）。
// Bold/Italic/BoldItalic 为可选的同族变体，缺省时由渲染器用仿粗体/仿斜体代替。
type FontResource struct {
	Name       string `json:"name"`
	Src        string `json:"src"`
	Bold       string `json:"bold,omitempty"`
	Italic     string `json:"italic,omitempty"`
	BoldItalic string `json:"boldItalic,omitempty"`
	Family     string `json:"family"`
	Fallback   string `json:"fallback,omitempty"`
}

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// Page 记录页面尺寸、边距与可直接绘制的元素，坐标单位为 mm，原点在左上角。
type Page struct {
	Width  float64     `json:"width"`
	Height float64     `json:"height"`
	Margin Margin      `json:"margin"`
	Blocks []TextBlock `json:"blocks"`
	Rules  []Rule      `json:"rules,omitempty"`
}

// Margin 以毫米为单位。
type Margin struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// TextBlock 是一段已经断好行的注音文本。Lines 只包含落在本页的行，
// 行的对齐偏移在绘制时由 AlignOffset(line.Width, Width, Align) 计算。
type TextBlock struct {
	Source   string  `json:"source"`
	Plain    string  `json:"plain"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Font     string  `json:"font"`
	Color    Color   `json:"color"`
	Metrics  Metrics `json:"metrics"`
	Align    Align   `json:"align"`
	Lines    []Line  `json:"lines"`
	Overflow bool    `json:"overflow,omitempty"` // 有行因 max-lines 被截断
}

// Rule 是一条水平分隔线。
type Rule struct {
	X1    float64 `json:"x1"`
	X2    float64 `json:"x2"`
	Y     float64 `json:"y"`
	Color Color   `json:"color"`
	Width float64 `json:"width"` // 线宽（mm），<=0 时由渲染器给默认值
}

// StyleDef 描述可继承的文本样式。
type StyleDef struct {
	Name    string            `json:"name"`
	Extends string            `json:"extends,omitempty"`
	Props   map[string]string `json:"props"`
}

// DocumentMeta 保存输出文件的元信息。
type DocumentMeta struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Subject  string   `json:"subject"`
	Creator  string   `json:"creator"`
	Keywords []string `json:"keywords"`
}
