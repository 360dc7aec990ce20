// Package mongo stores plans, tokens and users in MongoDB. Billing plans are
// embedded subdocuments of their plan.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/memberbeat/admin/internal/domain"
	"github.com/memberbeat/admin/internal/repository"
)

// Collection name constants.
const (
	colPlans  = "plans"
	colTokens = "tokens"
	colUsers  = "users"
)

const defaultDatabase = "memberbeat"

var (
	_ repository.PlanStore  = (*PlanStore)(nil)
	_ repository.TokenStore = (*TokenStore)(nil)
	_ repository.UserStore  = (*UserStore)(nil)
	_ repository.Pinger     = (*Store)(nil)
)

// Store wraps a connected client and the database named in the URI path.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials uri and pings the primary.
func Connect(ctx context.Context, uri string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return &Store{client: client, db: client.Database(databaseName(uri))}, nil
}

func databaseName(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return defaultDatabase
	}
	if name := strings.Trim(u.Path, "/"); name != "" {
		return name
	}
	return defaultDatabase
}

// Migrate creates the indexes the stores rely on.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		colPlans: {
			{Keys: bson.D{{Key: "createdAt", Value: 1}}},
		},
		colTokens: {
			{Keys: bson.D{{Key: "createdAt", Value: 1}}},
			{Keys: bson.D{{Key: "contractAddress", Value: 1}}},
		},
		colUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for col, models := range indexes {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.client.Disconnect(ctx)
}

// Stores exposes the store through the repository interfaces.
func (s *Store) Stores() *repository.Stores {
	return &repository.Stores{
		Plans:  &PlanStore{col: s.db.Collection(colPlans)},
		Tokens: &TokenStore{col: s.db.Collection(colTokens)},
		Users:  &UserStore{col: s.db.Collection(colUsers)},
		Pinger: s,
		Close:  s.Close,
	}
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

func byCreation() *options.FindOptionsBuilder {
	return options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
}

// ==================== Plans ====================

type planDoc struct {
	ID           string                      `bson:"_id"`
	Name         string                      `bson:"name"`
	Description  string                      `bson:"description"`
	Features     string                      `bson:"features"`
	LedgerPlanID int64                       `bson:"ledgerPlanId"`
	BillingPlans []repository.BillingPlanDoc `bson:"billingPlans"`
	CreatedAt    time.Time                   `bson:"createdAt"`
	UpdatedAt    time.Time                   `bson:"updatedAt"`
}

func toPlanDoc(p *domain.Plan) *planDoc {
	return &planDoc{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Features:     p.Features,
		LedgerPlanID: p.LedgerPlanID,
		BillingPlans: repository.EncodeBillingPlans(p.BillingPlans),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func fromPlanDoc(d *planDoc) (*domain.Plan, error) {
	bps, err := repository.DecodeBillingPlans(d.BillingPlans)
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", d.ID, err)
	}
	return &domain.Plan{
		ID:           d.ID,
		Name:         d.Name,
		Description:  d.Description,
		Features:     d.Features,
		LedgerPlanID: d.LedgerPlanID,
		BillingPlans: bps,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}, nil
}

type PlanStore struct {
	col *mongo.Collection
}

func (s *PlanStore) List(ctx context.Context) ([]*domain.Plan, error) {
	cur, err := s.col.Find(ctx, bson.M{}, byCreation())
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	var docs []planDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode plans: %w", err)
	}

	plans := make([]*domain.Plan, 0, len(docs))
	for i := range docs {
		p, err := fromPlanDoc(&docs[i])
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, nil
}

func (s *PlanStore) FindByID(ctx context.Context, id string) (*domain.Plan, error) {
	var d planDoc
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find plan: %w", err)
	}
	return fromPlanDoc(&d)
}

func (s *PlanStore) Create(ctx context.Context, p *domain.Plan) error {
	if _, err := s.col.InsertOne(ctx, toPlanDoc(p)); err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}
	return nil
}

func (s *PlanStore) set(ctx context.Context, id string, fields bson.M, what string) error {
	if _, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields}); err != nil {
		return fmt.Errorf("failed to %s: %w", what, err)
	}
	return nil
}

func (s *PlanStore) Update(ctx context.Context, p *domain.Plan) error {
	return s.set(ctx, p.ID, bson.M{
		"name":        p.Name,
		"description": p.Description,
		"features":    p.Features,
		"updatedAt":   p.UpdatedAt,
	}, "update plan")
}

func (s *PlanStore) Delete(ctx context.Context, id string) error {
	if _, err := s.col.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	return nil
}

func (s *PlanStore) SaveBillingPlans(ctx context.Context, planID string, bps []domain.BillingPlan, updatedAt time.Time) error {
	return s.set(ctx, planID, bson.M{
		"billingPlans": repository.EncodeBillingPlans(bps),
		"updatedAt":    updatedAt,
	}, "save billing plans")
}

func (s *PlanStore) SetLedgerPlanID(ctx context.Context, planID string, ledgerPlanID int64) error {
	return s.set(ctx, planID, bson.M{"ledgerPlanId": ledgerPlanID}, "set ledger plan id")
}

// ==================== Tokens ====================

type tokenDoc struct {
	ID               string    `bson:"_id"`
	Network          string    `bson:"network"`
	ContractAddress  string    `bson:"contractAddress"`
	PriceFeedAddress string    `bson:"priceFeedAddress"`
	TokenName        string    `bson:"tokenName"`
	Symbol           string    `bson:"symbol"`
	IconURL          string    `bson:"iconUrl"`
	CreatedAt        time.Time `bson:"createdAt"`
	UpdatedAt        time.Time `bson:"updatedAt"`
}

func (d *tokenDoc) token() *domain.Token {
	return &domain.Token{
		ID:               d.ID,
		Network:          d.Network,
		ContractAddress:  d.ContractAddress,
		PriceFeedAddress: d.PriceFeedAddress,
		TokenName:        d.TokenName,
		Symbol:           d.Symbol,
		IconURL:          d.IconURL,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

type TokenStore struct {
	col *mongo.Collection
}

func (s *TokenStore) find(ctx context.Context, filter bson.M) ([]*domain.Token, error) {
	cur, err := s.col.Find(ctx, filter, byCreation())
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	var docs []tokenDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode tokens: %w", err)
	}
	out := make([]*domain.Token, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].token())
	}
	return out, nil
}

func (s *TokenStore) List(ctx context.Context) ([]*domain.Token, error) {
	return s.find(ctx, bson.M{})
}

func (s *TokenStore) FindByIDs(ctx context.Context, ids []string) ([]*domain.Token, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (s *TokenStore) FindByID(ctx context.Context, id string) (*domain.Token, error) {
	var d tokenDoc
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find token: %w", err)
	}
	return d.token(), nil
}

func (s *TokenStore) Create(ctx context.Context, t *domain.Token) error {
	d := tokenDoc{
		ID:               t.ID,
		Network:          t.Network,
		ContractAddress:  t.ContractAddress,
		PriceFeedAddress: t.PriceFeedAddress,
		TokenName:        t.TokenName,
		Symbol:           t.Symbol,
		IconURL:          t.IconURL,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
	if _, err := s.col.InsertOne(ctx, d); err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}
	return nil
}

func (s *TokenStore) Update(ctx context.Context, t *domain.Token) error {
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": t.ID}, bson.M{"$set": bson.M{
		"network":          t.Network,
		"contractAddress":  t.ContractAddress,
		"priceFeedAddress": t.PriceFeedAddress,
		"tokenName":        t.TokenName,
		"symbol":           t.Symbol,
		"iconUrl":          t.IconURL,
		"updatedAt":        t.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("failed to update token: %w", err)
	}
	return nil
}

func (s *TokenStore) Delete(ctx context.Context, id string) error {
	if _, err := s.col.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// ==================== Users ====================

type userDoc struct {
	ID        string    `bson:"_id"`
	Email     string    `bson:"email"`
	Password  string    `bson:"password"`
	Role      string    `bson:"role"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func (d *userDoc) user() *domain.User {
	return &domain.User{
		ID:        d.ID,
		Email:     d.Email,
		Password:  d.Password,
		Role:      d.Role,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type UserStore struct {
	col *mongo.Collection
}

func (s *UserStore) Create(ctx context.Context, u *domain.User) error {
	d := userDoc{
		ID:        u.ID,
		Email:     u.Email,
		Password:  u.Password,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if _, err := s.col.InsertOne(ctx, d); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var d userDoc
	if err := s.col.FindOne(ctx, filter).Decode(&d); err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return d.user(), nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *UserStore) Exists(ctx context.Context, email string) (bool, error) {
	n, err := s.col.CountDocuments(ctx, bson.M{"email": email})
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return n > 0, nil
}

func (s *UserStore) ListAll(ctx context.Context) ([]*domain.User, error) {
	cur, err := s.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	out := make([]*domain.User, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].user())
	}
	return out, nil
}

func (s *UserStore) Delete(ctx context.Context, id string) error {
	if _, err := s.col.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}
