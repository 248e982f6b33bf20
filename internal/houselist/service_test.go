package houselist

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/carlyzach/houserank/internal/model"
)

func newTestLogger() *slog.Logger {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// mockListRepo はHouseListRepositoryのテスト用実装。
// 変更系呼び出しの回数を記録し、アクセス検証前に変更が走らないことを
// 検証できるようにする。
type mockListRepo struct {
	list      *model.HouseList
	hasAccess bool

	deleteCalls       int
	addHouseCalls     int
	removeHouseCalls  int
	addMemberCalls    int
	removeMemberCalls int
}

func (m *mockListRepo) Create(ctx context.Context, name string, ownerID int64) (*model.HouseList, error) {
	return &model.HouseList{ID: 1, Name: name, OwnerID: ownerID}, nil
}

func (m *mockListRepo) FindByID(ctx context.Context, id int64) (*model.HouseList, error) {
	return m.list, nil
}

func (m *mockListRepo) Delete(ctx context.Context, id int64) (*model.HouseList, error) {
	m.deleteCalls++
	return m.list, nil
}

func (m *mockListRepo) AddHouse(ctx context.Context, zpid string, listID int64) (*model.House, error) {
	m.addHouseCalls++
	return &model.House{ID: 1, Zpid: zpid}, nil
}

func (m *mockListRepo) RemoveHouse(ctx context.Context, zpid string, listID int64) (*model.House, error) {
	m.removeHouseCalls++
	return &model.House{ID: 1, Zpid: zpid}, nil
}

func (m *mockListRepo) AddMember(ctx context.Context, email string, listID int64) (*model.User, error) {
	m.addMemberCalls++
	return &model.User{ID: 2, Email: email}, nil
}

func (m *mockListRepo) RemoveMember(ctx context.Context, userID, listID int64) (*model.User, error) {
	m.removeMemberCalls++
	return &model.User{ID: userID}, nil
}

func (m *mockListRepo) HasEditAccess(ctx context.Context, listID, userID int64) (bool, error) {
	return m.hasAccess, nil
}

func (m *mockListRepo) ListsByOwner(ctx context.Context, ownerID int64) ([]*model.HouseList, error) {
	return []*model.HouseList{m.list}, nil
}

func (m *mockListRepo) ListsByMember(ctx context.Context, userID int64) ([]*model.HouseList, error) {
	return nil, nil
}

func (m *mockListRepo) MembersOfList(ctx context.Context, listID int64) ([]*model.User, error) {
	return nil, nil
}

func (m *mockListRepo) HousesOfList(ctx context.Context, listID int64) ([]*model.House, error) {
	return nil, nil
}

func TestDelete_AccessDenied_NoMutation(t *testing.T) {
	// アクセスの無いユーザーの削除は、変更が走る前に拒否される
	repo := &mockListRepo{
		list:      &model.HouseList{ID: 10, Name: "homes", OwnerID: 1},
		hasAccess: false,
	}
	s := NewService(repo, newTestLogger())

	_, err := s.Delete(context.Background(), 10, 99)
	if err == nil {
		t.Fatal("編集アクセスが無いのにエラーが返らなかった")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("エラー型 = %T, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeAccessDenied {
		t.Errorf("Code = %s, want %s", apiErr.Code, model.ErrCodeAccessDenied)
	}
	if repo.deleteCalls != 0 {
		t.Errorf("削除呼び出し回数 = %d, want 0 (検証前に変更してはならない)", repo.deleteCalls)
	}
}

func TestMutations_AccessDenied_NoMutation(t *testing.T) {
	repo := &mockListRepo{
		list:      &model.HouseList{ID: 10, Name: "homes", OwnerID: 1},
		hasAccess: false,
	}
	s := NewService(repo, newTestLogger())
	ctx := context.Background()

	if _, err := s.AddHouse(ctx, "100", 10, 99); err == nil {
		t.Error("AddHouse: 編集アクセスが無いのにエラーが返らなかった")
	}
	if _, err := s.RemoveHouse(ctx, "100", 10, 99); err == nil {
		t.Error("RemoveHouse: 編集アクセスが無いのにエラーが返らなかった")
	}
	if _, err := s.AddMember(ctx, "x@example.com", 10, 99); err == nil {
		t.Error("AddMember: 編集アクセスが無いのにエラーが返らなかった")
	}
	if _, err := s.RemoveMember(ctx, 2, 10, 99); err == nil {
		t.Error("RemoveMember: 編集アクセスが無いのにエラーが返らなかった")
	}

	if repo.addHouseCalls+repo.removeHouseCalls+repo.addMemberCalls+repo.removeMemberCalls != 0 {
		t.Error("アクセス拒否後に変更系クエリが実行された")
	}
}

func TestDelete_ListNotFound(t *testing.T) {
	repo := &mockListRepo{list: nil, hasAccess: true}
	s := NewService(repo, newTestLogger())

	_, err := s.Delete(context.Background(), 10, 1)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("エラー型 = %T, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeHouseListNotFound {
		t.Errorf("Code = %s, want %s", apiErr.Code, model.ErrCodeHouseListNotFound)
	}
}

func TestAddHouse_WithAccess_Succeeds(t *testing.T) {
	repo := &mockListRepo{
		list:      &model.HouseList{ID: 10, Name: "homes", OwnerID: 1},
		hasAccess: true,
	}
	s := NewService(repo, newTestLogger())

	house, err := s.AddHouse(context.Background(), "12345", 10, 1)
	if err != nil {
		t.Fatalf("AddHouse がエラーを返した: %v", err)
	}
	if house.Zpid != "12345" {
		t.Errorf("Zpid = %s, want 12345", house.Zpid)
	}
	if repo.addHouseCalls != 1 {
		t.Errorf("AddHouse呼び出し回数 = %d, want 1", repo.addHouseCalls)
	}
}

func TestCreate_NoAuthorizationRequired(t *testing.T) {
	// リスト作成は既存リストへの操作ではないため事前検証を行わない
	repo := &mockListRepo{hasAccess: false}
	s := NewService(repo, newTestLogger())

	list, err := s.Create(context.Background(), "dream homes", 7)
	if err != nil {
		t.Fatalf("Create がエラーを返した: %v", err)
	}
	if list.Name != "dream homes" || list.OwnerID != 7 {
		t.Errorf("list = %+v, want Name=dream homes OwnerID=7", list)
	}
}
