package biz

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/kart-io/minerva/internal/model"
	"github.com/kart-io/minerva/pkg/errors"
)

// 标识符分类规则：
//   - UUID 形如 "8a2b...-..."，按章节 ID 查找；
//   - 点号路径形如 "1.2.1"（纯数字也视为路径），按同级排名逐层解析；
//   - 其余按 slug 查找，slug 命中多个章节时报歧义错误。
var (
	uuidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	pathPattern = regexp.MustCompile(`^\d+(\.\d+)*$`)
)

// Resolve 将用户提供的标识符解析为章节。
// 支持章节 ID（UUID）、点号路径与 slug 三种形式。
func (s *Service) Resolve(ctx context.Context, identifier string) (*model.Section, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, errors.ErrInvalidIdentifier
	}

	switch {
	case uuidPattern.MatchString(identifier):
		section, err := s.sections.FindByID(ctx, identifier)
		if err != nil {
			return nil, errors.ErrStructuredStore.WithCause(err)
		}
		if section == nil {
			return nil, errors.ErrSectionNotFound.WithMessagef("section %s not found", identifier)
		}
		return section, nil

	case pathPattern.MatchString(identifier):
		ranks, err := parsePath(identifier)
		if err != nil {
			return nil, errors.ErrInvalidIdentifier.WithCause(err)
		}
		section, err := s.sections.ResolvePath(ctx, ranks)
		if err != nil {
			return nil, errors.ErrStructuredStore.WithCause(err)
		}
		if section == nil {
			return nil, errors.ErrSectionNotFound.WithMessagef("no section at path %s", identifier)
		}
		return section, nil

	default:
		matches, err := s.sections.FindBySlug(ctx, identifier)
		if err != nil {
			return nil, errors.ErrStructuredStore.WithCause(err)
		}
		switch len(matches) {
		case 0:
			return nil, errors.ErrSectionNotFound.WithMessagef("no section with slug %q", identifier)
		case 1:
			return matches[0], nil
		default:
			return nil, errors.ErrSlugAmbiguous.WithMessagef(
				"slug %q matches %d sections, use id or path", identifier, len(matches))
		}
	}
}

// parsePath 解析点号路径为 1 基排名序列。
// 分量必须为正整数，如 "1.2.1" → [1,2,1]。
func parsePath(path string) ([]int, error) {
	parts := strings.Split(path, ".")
	ranks := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		if n < 1 {
			return nil, strconv.ErrRange
		}
		ranks[i] = n
	}
	return ranks, nil
}
