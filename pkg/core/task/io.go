package task

import "fmt"

// Content 在Task之间流转的值（对外导出）
type Content struct {
	value any
}

// NewContent 包装任意值
func NewContent(v any) Content {
	return Content{value: v}
}

// Value 返回原始值
func (c Content) Value() any {
	return c.value
}

// String 以字符串形式返回值，nil 返回空串
func (c Content) String() string {
	switch v := c.value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ContentAs 将Content转换为指定类型（对外导出）
func ContentAs[T any](c Content) (T, bool) {
	v, ok := c.value.(T)
	return v, ok
}

// InputItem 单个输入项，记录产生该值的上游Task
type InputItem struct {
	From    ID
	Content Content
}

// Input Task执行时的输入（对外导出）
// 顺序与Task声明的Inputs一致，之后是通过显式依赖追加的上游输出
type Input struct {
	items []InputItem
}

// NewInput 创建Input
func NewInput(items ...InputItem) *Input {
	return &Input{items: items}
}

// EmptyInput 创建空Input
func EmptyInput() *Input {
	return &Input{}
}

// Len 返回输入项数量
func (in *Input) Len() int {
	if in == nil {
		return 0
	}
	return len(in.items)
}

// Get 按位置获取输入项
func (in *Input) Get(i int) (Content, bool) {
	if in == nil || i < 0 || i >= len(in.items) {
		return Content{}, false
	}
	return in.items[i].Content, true
}

// From 按上游Task ID获取输入项
func (in *Input) From(id ID) (Content, bool) {
	if in == nil {
		return Content{}, false
	}
	for _, item := range in.items {
		if item.From == id {
			return item.Content, true
		}
	}
	return Content{}, false
}

// Items 返回所有输入项的副本
func (in *Input) Items() []InputItem {
	if in == nil {
		return nil
	}
	out := make([]InputItem, len(in.items))
	copy(out, in.items)
	return out
}

// Values 按顺序返回所有原始值
func (in *Input) Values() []any {
	if in == nil {
		return nil
	}
	values := make([]any, 0, len(in.items))
	for _, item := range in.items {
		values = append(values, item.Content.Value())
	}
	return values
}

// Strings 按顺序返回所有值的字符串形式
func (in *Input) Strings() []string {
	if in == nil {
		return nil
	}
	values := make([]string, 0, len(in.items))
	for _, item := range in.items {
		values = append(values, item.Content.String())
	}
	return values
}

// Output Task执行产生的输出（对外导出），可以为空
type Output struct {
	content *Content
}

// NewOutput 创建带值的Output
func NewOutput(v any) *Output {
	c := NewContent(v)
	return &Output{content: &c}
}

// EmptyOutput 创建空Output
func EmptyOutput() *Output {
	return &Output{}
}

// IsEmpty 是否没有值
func (o *Output) IsEmpty() bool {
	return o == nil || o.content == nil
}

// Content 返回输出内容，空输出返回零值Content
func (o *Output) Content() Content {
	if o.IsEmpty() {
		return Content{}
	}
	return *o.content
}

// Value 返回原始值
func (o *Output) Value() any {
	return o.Content().Value()
}

// String 以字符串形式返回输出
func (o *Output) String() string {
	return o.Content().String()
}
