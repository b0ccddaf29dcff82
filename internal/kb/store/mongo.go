package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kart-io/minerva/internal/model"
	"github.com/kart-io/minerva/pkg/component/mongodb"
)

// SectionCollection 章节集合名。
const SectionCollection = "sections"

// MongoStore 实现基于 MongoDB 的章节结构化存储。
type MongoStore struct {
	coll *mongo.Collection
}

// 确保 MongoStore 实现了 SectionStore 接口。
var _ SectionStore = (*MongoStore)(nil)

// NewMongoStore 创建 MongoDB 章节存储实例。
func NewMongoStore(client *mongodb.Client) *MongoStore {
	return &MongoStore{coll: client.Collection(SectionCollection)}
}

// childSort 同级章节的稳定排序：先按 order，再按创建时间。
var childSort = bson.D{{Key: "order", Value: 1}, {Key: "created_at", Value: 1}}

// Insert 插入一条章节记录。
func (s *MongoStore) Insert(ctx context.Context, section *model.Section) error {
	if _, err := s.coll.InsertOne(ctx, section); err != nil {
		return fmt.Errorf("failed to insert section: %w", err)
	}
	return nil
}

// FindByID 按章节 ID 查找，不存在时返回 (nil, nil)。
func (s *MongoStore) FindByID(ctx context.Context, id string) (*model.Section, error) {
	var section model.Section
	err := s.coll.FindOne(ctx, bson.M{"section_id": id}).Decode(&section)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find section by id: %w", err)
	}
	return &section, nil
}

// FindBySlug 按 slug 查找所有匹配的章节。
func (s *MongoStore) FindBySlug(ctx context.Context, slug string) ([]*model.Section, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"slug": slug})
	if err != nil {
		return nil, fmt.Errorf("failed to find sections by slug: %w", err)
	}
	return decodeSections(ctx, cursor)
}

// FindByHeader 按标题查找第一个匹配的章节，不存在时返回 (nil, nil)。
func (s *MongoStore) FindByHeader(ctx context.Context, header string) (*model.Section, error) {
	var section model.Section
	err := s.coll.FindOne(ctx, bson.M{"header": header}).Decode(&section)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find section by header: %w", err)
	}
	return &section, nil
}

// FindChildren 查找直接子章节，按 order 升序排列。
func (s *MongoStore) FindChildren(ctx context.Context, parentID string) ([]*model.Section, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"parent_id": parentID},
		mongooptions.Find().SetSort(childSort))
	if err != nil {
		return nil, fmt.Errorf("failed to find children: %w", err)
	}
	return decodeSections(ctx, cursor)
}

// ListAll 列出所有章节。
func (s *MongoStore) ListAll(ctx context.Context) ([]*model.Section, error) {
	cursor, err := s.coll.Find(ctx, bson.M{},
		mongooptions.Find().SetSort(childSort))
	if err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	return decodeSections(ctx, cursor)
}

// UpdateFields 更新指定章节的部分字段。
func (s *MongoStore) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	update := bson.M{}
	for k, v := range fields {
		update[k] = v
	}
	result, err := s.coll.UpdateOne(ctx, bson.M{"section_id": id}, bson.M{"$set": update})
	if err != nil {
		return fmt.Errorf("failed to update section: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("section %s not found", id)
	}
	return nil
}

// DeleteByID 删除单条章节记录。
func (s *MongoStore) DeleteByID(ctx context.Context, id string) error {
	result, err := s.coll.DeleteOne(ctx, bson.M{"section_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete section: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("section %s not found", id)
	}
	return nil
}

// DeleteSubtree 删除以 rootID 为根的整棵子树，返回被删除的章节 ID。
// 采用 BFS 逐层收集后一次性删除。
func (s *MongoStore) DeleteSubtree(ctx context.Context, rootID string) ([]string, error) {
	ids := []string{rootID}
	queue := []string{rootID}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		children, err := s.FindChildren(ctx, current)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			ids = append(ids, child.ID)
			queue = append(queue, child.ID)
		}
	}

	if _, err := s.coll.DeleteMany(ctx, bson.M{"section_id": bson.M{"$in": ids}}); err != nil {
		return nil, fmt.Errorf("failed to delete subtree: %w", err)
	}
	return ids, nil
}

// ResolvePath 按点号路径逐层解析章节，路径不存在时返回 (nil, nil)。
// 路径分量为 1 基的同级排名，如 [1,2] 表示第一个根章节的第二个子章节。
func (s *MongoStore) ResolvePath(ctx context.Context, path []int) (*model.Section, error) {
	if len(path) == 0 {
		return nil, nil
	}

	parentID := ""
	var current *model.Section

	for _, rank := range path {
		siblings, err := s.FindChildren(ctx, parentID)
		if err != nil {
			return nil, err
		}
		if rank < 1 || rank > len(siblings) {
			return nil, nil
		}
		current = siblings[rank-1]
		parentID = current.ID
	}

	return current, nil
}

// ComputePath 计算章节在文档树中的点号路径。
// 自底向上逐层求同级排名后反转拼接。
func (s *MongoStore) ComputePath(ctx context.Context, id string) (string, error) {
	var ranks []int
	currentID := id

	for currentID != "" {
		section, err := s.FindByID(ctx, currentID)
		if err != nil {
			return "", err
		}
		if section == nil {
			return "", fmt.Errorf("section %s not found", currentID)
		}

		siblings, err := s.FindChildren(ctx, section.ParentID)
		if err != nil {
			return "", err
		}

		rank := 0
		for i, sibling := range siblings {
			if sibling.ID == section.ID {
				rank = i + 1
				break
			}
		}
		if rank == 0 {
			return "", fmt.Errorf("section %s missing from sibling list", currentID)
		}

		ranks = append(ranks, rank)
		currentID = section.ParentID
	}

	// ranks 为自底向上的序列，反转后拼接
	path := ""
	for i := len(ranks) - 1; i >= 0; i-- {
		if path != "" {
			path += "."
		}
		path += fmt.Sprintf("%d", ranks[i])
	}
	return path, nil
}

// Count 返回章节总数。
func (s *MongoStore) Count(ctx context.Context) (int64, error) {
	count, err := s.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count sections: %w", err)
	}
	return count, nil
}

// EnsureIndexes 创建必需的索引。
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "section_id", Value: 1}},
			Options: mongooptions.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "parent_id", Value: 1}, {Key: "order", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "slug", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "header", Value: 1}},
		},
	}
	if _, err := s.coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// decodeSections 读取游标中的全部章节并关闭游标。
func decodeSections(ctx context.Context, cursor *mongo.Cursor) ([]*model.Section, error) {
	defer cursor.Close(ctx)

	var sections []*model.Section
	for cursor.Next(ctx) {
		var section model.Section
		if err := cursor.Decode(&section); err != nil {
			return nil, fmt.Errorf("failed to decode section: %w", err)
		}
		sections = append(sections, &section)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return sections, nil
}
