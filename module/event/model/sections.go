package model

import (
	"DProject/tools/errs"

	"github.com/mitchellh/mapstructure"
)

// DecodeSections 将 schemaless 的 data 解码为类型化分段。
// 只解码 context.included_sections 声明过的分段；分段缺上下文声明时不读取，
// 这是分类器必须遵守的契约（见 Classify）。
func (e *Event) DecodeSections() (*Sections, error) {
	out := &Sections{}
	if len(e.Data) == 0 {
		return out, nil
	}

	if raw, ok := e.Data[SectionContext]; ok {
		ctxSec := &ContextSection{}
		if err := decodeSection(raw, ctxSec); err != nil {
			return nil, errs.WrapMsg(err, "decode context section", "event_id", e.EventID)
		}
		out.Context = ctxSec
	}

	included := func(name string) bool {
		if out.Context == nil {
			return false
		}
		for _, s := range out.Context.IncludedSections {
			if s == name {
				return true
			}
		}
		return false
	}

	if raw, ok := e.Data[SectionDialog]; ok && included(SectionDialog) {
		sec := &DialogSection{}
		if err := decodeSection(raw, sec); err != nil {
			return nil, errs.WrapMsg(err, "decode dialog section", "event_id", e.EventID)
		}
		out.Dialog = sec
	}
	if raw, ok := e.Data[SectionMember]; ok && included(SectionMember) {
		sec := &MemberSection{}
		if err := decodeSection(raw, sec); err != nil {
			return nil, errs.WrapMsg(err, "decode member section", "event_id", e.EventID)
		}
		out.Member = sec
	}
	if raw, ok := e.Data[SectionMessage]; ok && included(SectionMessage) {
		sec := &MessageSection{}
		if err := decodeSection(raw, sec); err != nil {
			return nil, errs.WrapMsg(err, "decode message section", "event_id", e.EventID)
		}
		out.Message = sec
	}
	if raw, ok := e.Data[SectionTyping]; ok && included(SectionTyping) {
		sec := &TypingSection{}
		if err := decodeSection(raw, sec); err != nil {
			return nil, errs.WrapMsg(err, "decode typing section", "event_id", e.EventID)
		}
		out.Typing = sec
	}
	if raw, ok := e.Data[SectionUser]; ok && included(SectionUser) {
		sec := &UserSection{}
		if err := decodeSection(raw, sec); err != nil {
			return nil, errs.WrapMsg(err, "decode user section", "event_id", e.EventID)
		}
		out.User = sec
	}
	return out, nil
}

func decodeSection(raw any, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}
