// Package houselist はリスト管理のビジネスロジックを提供する。
// すべての変更系操作は、実行ユーザーがリストのオーナーまたはeditメンバーで
// あることを検証してから行われる。
package houselist

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/carlyzach/houserank/internal/model"
	"github.com/carlyzach/houserank/internal/repository"
)

// Service はリスト管理のサービス。
// アクセス検証とその後の変更は別クエリで行われる（check-then-act）。
// 検証と変更の間に権限が剥奪されるウィンドウは許容している。
type Service struct {
	lists  repository.HouseListRepository
	logger *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(lists repository.HouseListRepository, logger *slog.Logger) *Service {
	return &Service{
		lists:  lists,
		logger: logger,
	}
}

// authorize は変更系操作の事前検証を行う。
// リストが存在しない場合はHOUSE_LIST_NOT_FOUND、
// ユーザーにeditアクセスが無い場合はACCESS_DENIEDを返す。
func (s *Service) authorize(ctx context.Context, listID, userID int64) error {
	list, err := s.lists.FindByID(ctx, listID)
	if err != nil {
		return fmt.Errorf("failed to find house list: %w", err)
	}
	if list == nil {
		return model.NewHouseListNotFoundError(listID)
	}

	ok, err := s.lists.HasEditAccess(ctx, listID, userID)
	if err != nil {
		return fmt.Errorf("failed to check edit access: %w", err)
	}
	if !ok {
		s.logger.Warn("edit access denied",
			slog.Int64("list_id", listID),
			slog.Int64("user_id", userID),
		)
		return model.NewAccessDeniedError(listID)
	}

	return nil
}

// Create は新しいリストを作成する。作成者がオーナーになり、メンバーは空。
func (s *Service) Create(ctx context.Context, name string, ownerID int64) (*model.HouseList, error) {
	list, err := s.lists.Create(ctx, name, ownerID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("house list created",
		slog.Int64("list_id", list.ID),
		slog.Int64("owner_id", ownerID),
	)
	return list, nil
}

// Delete はリストを削除し、削除前の行を返す。
// メンバー行・物件Join行へのカスケード削除は行わない（既知のギャップ）。
func (s *Service) Delete(ctx context.Context, listID, userID int64) (*model.HouseList, error) {
	if err := s.authorize(ctx, listID, userID); err != nil {
		return nil, err
	}

	list, err := s.lists.Delete(ctx, listID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("house list deleted",
		slog.Int64("list_id", listID),
		slog.Int64("user_id", userID),
	)
	return list, nil
}

// AddHouse は物件をリストへ追加する。物件行が無ければblobなしの素の行を
// 作成する。すでにリストに含まれている場合も成功として物件を返す（冪等）。
func (s *Service) AddHouse(ctx context.Context, zpid string, listID, userID int64) (*model.House, error) {
	if err := s.authorize(ctx, listID, userID); err != nil {
		return nil, err
	}
	return s.lists.AddHouse(ctx, zpid, listID)
}

// RemoveHouse はリストから物件を外す。リスト・物件・Join行のいずれかが
// 存在しない場合はエラーを返す。
func (s *Service) RemoveHouse(ctx context.Context, zpid string, listID, userID int64) (*model.House, error) {
	if err := s.authorize(ctx, listID, userID); err != nil {
		return nil, err
	}
	return s.lists.RemoveHouse(ctx, zpid, listID)
}

// AddMember は指定メールアドレスのユーザーをeditアクセスでメンバー追加する。
// 対象ユーザーが一度も認証していない場合はエラーを返す。冪等。
func (s *Service) AddMember(ctx context.Context, email string, listID, userID int64) (*model.User, error) {
	if err := s.authorize(ctx, listID, userID); err != nil {
		return nil, err
	}
	return s.lists.AddMember(ctx, email, listID)
}

// RemoveMember はメンバーシップ行を削除する。
func (s *Service) RemoveMember(ctx context.Context, memberID, listID, userID int64) (*model.User, error) {
	if err := s.authorize(ctx, listID, userID); err != nil {
		return nil, err
	}
	return s.lists.RemoveMember(ctx, memberID, listID)
}

// ListsOwned はユーザーがオーナーのリスト一覧を返す。
func (s *Service) ListsOwned(ctx context.Context, userID int64) ([]*model.HouseList, error) {
	return s.lists.ListsByOwner(ctx, userID)
}

// ListsMemberOf はユーザーがメンバーのリスト一覧を返す。
func (s *Service) ListsMemberOf(ctx context.Context, userID int64) ([]*model.HouseList, error) {
	return s.lists.ListsByMember(ctx, userID)
}

// Members はリストのメンバーユーザー一覧を返す。
func (s *Service) Members(ctx context.Context, listID int64) ([]*model.User, error) {
	return s.lists.MembersOfList(ctx, listID)
}

// Houses はリストに含まれる物件一覧を返す。
func (s *Service) Houses(ctx context.Context, listID int64) ([]*model.House, error) {
	return s.lists.HousesOfList(ctx, listID)
}
