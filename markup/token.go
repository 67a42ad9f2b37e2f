package markup

// Style 记录字符或注音对在创建时生效的样式开关。
type Style struct {
	Bold      bool `json:"bold,omitempty"`
	Italic    bool `json:"italic,omitempty"`
	Underline bool `json:"underline,omitempty"`
}

// Kind 区分词法单元的类别。
type Kind int

const (
	Char Kind = iota
	Toggle
	Break
	Ruby
)

func (k Kind) String() string {
	switch k {
	case Char:
		return "char"
	case Toggle:
		return "toggle"
	case Break:
		return "break"
	case Ruby:
		return "ruby"
	default:
		return "unknown"
	}
}

// Flag 是 Toggle 所控制的样式位。
type Flag int

const (
	FlagBold Flag = iota
	FlagItalic
	FlagUnderline
)

// Token 是 Parse 输出的单个单元，Kind 决定哪些字段有效：
//   - Char:   Char, Style
//   - Toggle: Flag, On
//   - Break:  无附加字段
//   - Ruby:   Base, Gloss, Style
type Token struct {
	Kind  Kind
	Char  rune
	Flag  Flag
	On    bool
	Base  string
	Gloss string
	Style Style
}

// apply returns s with the flag set to on. Flags are independent booleans, not a stack.
func (s Style) apply(f Flag, on bool) Style {
	switch f {
	case FlagBold:
		s.Bold = on
	case FlagItalic:
		s.Italic = on
	case FlagUnderline:
		s.Underline = on
	}
	return s
}
