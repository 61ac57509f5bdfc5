package repository

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"restaurant-api/models"
)

// NewMongoStore returns a Store backed by the named database. Items and
// status history are embedded in the order document, so every order write
// touches exactly one document.
func NewMongoStore(client *mongo.Client, database string) *Store {
	db := client.Database(database)
	return &Store{
		Menu:   &mongoMenuRepository{col: db.Collection("menu_items")},
		Orders: &mongoOrderRepository{col: db.Collection("orders")},
		Users:  &mongoUserRepository{col: db.Collection("users")},
		ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		close: client.Disconnect,
	}
}

// EnsureMongoIndexes creates the unique and lookup indexes the repositories
// rely on.
func EnsureMongoIndexes(ctx context.Context, client *mongo.Client, database string) error {
	db := client.Database(database)
	indexes := map[string][]mongo.IndexModel{
		"menu_items": {
			{Keys: bson.D{{Key: "name_key", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "category", Value: 1}, {Key: "name", Value: 1}}},
		},
		"users": {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		"orders": {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
	}
	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrapf(err, "create %s indexes", name)
		}
	}
	return nil
}

func translateMongo(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return errors.Wrap(ErrDuplicate, err.Error())
	}
	return err
}

func toDecimal128(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.NewDecimal128(0, 0)
	}
	return v
}

func fromDecimal128(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ── Menu ─────────────────────────────────────────────────────────────────────

type menuDoc struct {
	ID              string               `bson:"_id"`
	Name            string               `bson:"name"`
	NameKey         string               `bson:"name_key"`
	Description     string               `bson:"description"`
	Price           primitive.Decimal128 `bson:"price"`
	Image           string               `bson:"image"`
	Category        string               `bson:"category"`
	IsAvailable     bool                 `bson:"is_available"`
	PreparationTime int                  `bson:"preparation_time"`
	SpiceLevel      string               `bson:"spice_level"`
	DietaryTags     []string             `bson:"dietary_tags"`
	CreatedAt       time.Time            `bson:"created_at"`
	UpdatedAt       time.Time            `bson:"updated_at"`
}

func newMenuDoc(m *models.MenuItem) menuDoc {
	tags := make([]string, len(m.DietaryTags))
	for i, t := range m.DietaryTags {
		tags[i] = string(t)
	}
	return menuDoc{
		ID:              m.ID,
		Name:            m.Name,
		NameKey:         m.NameKey,
		Description:     m.Description,
		Price:           toDecimal128(m.Price),
		Image:           m.Image,
		Category:        string(m.Category),
		IsAvailable:     m.IsAvailable,
		PreparationTime: m.PreparationTime,
		SpiceLevel:      string(m.SpiceLevel),
		DietaryTags:     tags,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func (d menuDoc) model() models.MenuItem {
	tags := make([]models.DietaryTag, len(d.DietaryTags))
	for i, t := range d.DietaryTags {
		tags[i] = models.DietaryTag(t)
	}
	return models.MenuItem{
		ID:              d.ID,
		Name:            d.Name,
		NameKey:         d.NameKey,
		Description:     d.Description,
		Price:           fromDecimal128(d.Price),
		Image:           d.Image,
		Category:        models.Category(d.Category),
		IsAvailable:     d.IsAvailable,
		PreparationTime: d.PreparationTime,
		SpiceLevel:      models.SpiceLevel(d.SpiceLevel),
		DietaryTags:     tags,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

type mongoMenuRepository struct {
	col *mongo.Collection
}

func (r *mongoMenuRepository) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.MenuItem, error) {
	cursor, err := r.col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []menuDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	items := make([]models.MenuItem, len(docs))
	for i, d := range docs {
		items[i] = d.model()
	}
	return items, nil
}

func (r *mongoMenuRepository) List(ctx context.Context, filter MenuFilter) ([]models.MenuItem, error) {
	query := bson.M{}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.Dietary != "" {
		query["dietary_tags"] = filter.Dietary
	}
	if filter.SpiceLevel != "" {
		query["spice_level"] = filter.SpiceLevel
	}
	if filter.AvailableOnly {
		query["is_available"] = true
	}
	sort := options.Find().SetSort(bson.D{{Key: "category", Value: 1}, {Key: "name", Value: 1}})
	items, err := r.find(ctx, query, sort)
	if err != nil {
		return nil, errors.Wrap(err, "list menu items")
	}
	return items, nil
}

func (r *mongoMenuRepository) findOne(ctx context.Context, filter bson.M) (*models.MenuItem, error) {
	var doc menuDoc
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translateMongo(err)
	}
	item := doc.model()
	return &item, nil
}

func (r *mongoMenuRepository) GetByID(ctx context.Context, id string) (*models.MenuItem, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoMenuRepository) GetByIDs(ctx context.Context, ids []string) ([]models.MenuItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	items, err := r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, errors.Wrap(err, "get menu items")
	}
	return items, nil
}

func (r *mongoMenuRepository) GetByNameKey(ctx context.Context, nameKey string) (*models.MenuItem, error) {
	return r.findOne(ctx, bson.M{"name_key": nameKey})
}

func (r *mongoMenuRepository) Create(ctx context.Context, item *models.MenuItem) error {
	_, err := r.col.InsertOne(ctx, newMenuDoc(item))
	return translateMongo(err)
}

func (r *mongoMenuRepository) Update(ctx context.Context, item *models.MenuItem) error {
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": item.ID}, newMenuDoc(item))
	if err != nil {
		return translateMongo(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoMenuRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ── Orders ───────────────────────────────────────────────────────────────────

type orderItemDoc struct {
	ID                  string               `bson:"id"`
	MenuItemID          string               `bson:"menu_item_id"`
	Name                string               `bson:"name"`
	Quantity            int                  `bson:"quantity"`
	UnitPrice           primitive.Decimal128 `bson:"unit_price"`
	SpecialInstructions string               `bson:"special_instructions,omitempty"`
}

type historyDoc struct {
	ID         string    `bson:"id"`
	FromStatus string    `bson:"from_status,omitempty"`
	ToStatus   string    `bson:"to_status"`
	ChangedBy  string    `bson:"changed_by"`
	Note       string    `bson:"note,omitempty"`
	CreatedAt  time.Time `bson:"created_at"`
}

type addressDoc struct {
	Street  string `bson:"street,omitempty"`
	City    string `bson:"city,omitempty"`
	State   string `bson:"state,omitempty"`
	ZipCode string `bson:"zip_code,omitempty"`
}

type orderDoc struct {
	ID                   string               `bson:"_id"`
	UserID               string               `bson:"user_id"`
	Items                []orderItemDoc       `bson:"items"`
	OrderType            string               `bson:"order_type"`
	Status               string               `bson:"status"`
	PaymentStatus        string               `bson:"payment_status"`
	PaymentMethod        string               `bson:"payment_method"`
	TotalAmount          primitive.Decimal128 `bson:"total_amount"`
	DeliveryAddress      *addressDoc          `bson:"delivery_address,omitempty"`
	DeliveryInstructions string               `bson:"delivery_instructions,omitempty"`
	TableNumber          *int                 `bson:"table_number,omitempty"`
	SpecialRequests      string               `bson:"special_requests,omitempty"`
	EstimatedReadyAt     time.Time            `bson:"estimated_ready_at"`
	ActualDeliveryTime   *time.Time           `bson:"actual_delivery_time,omitempty"`
	StatusHistory        []historyDoc         `bson:"status_history"`
	CreatedAt            time.Time            `bson:"created_at"`
	UpdatedAt            time.Time            `bson:"updated_at"`
}

func newHistoryDoc(h models.OrderStatusHistory) historyDoc {
	return historyDoc{
		ID:         h.ID,
		FromStatus: string(h.FromStatus),
		ToStatus:   string(h.ToStatus),
		ChangedBy:  h.ChangedBy,
		Note:       h.Note,
		CreatedAt:  h.CreatedAt,
	}
}

func newOrderDoc(o *models.Order) orderDoc {
	doc := orderDoc{
		ID:                   o.ID,
		UserID:               o.UserID,
		OrderType:            string(o.OrderType),
		Status:               string(o.Status),
		PaymentStatus:        string(o.PaymentStatus),
		PaymentMethod:        string(o.PaymentMethod),
		TotalAmount:          toDecimal128(o.TotalAmount),
		DeliveryInstructions: o.DeliveryInstructions,
		TableNumber:          o.TableNumber,
		SpecialRequests:      o.SpecialRequests,
		EstimatedReadyAt:     o.EstimatedReadyAt,
		ActualDeliveryTime:   o.ActualDeliveryTime,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
	if !o.DeliveryAddress.IsZero() {
		a := o.DeliveryAddress
		doc.DeliveryAddress = &addressDoc{Street: a.Street, City: a.City, State: a.State, ZipCode: a.ZipCode}
	}
	for _, it := range o.Items {
		doc.Items = append(doc.Items, orderItemDoc{
			ID:                  it.ID,
			MenuItemID:          it.MenuItemID,
			Name:                it.Name,
			Quantity:            it.Quantity,
			UnitPrice:           toDecimal128(it.UnitPrice),
			SpecialInstructions: it.SpecialInstructions,
		})
	}
	for _, h := range o.StatusHistory {
		doc.StatusHistory = append(doc.StatusHistory, newHistoryDoc(h))
	}
	return doc
}

func (d orderDoc) model() models.Order {
	o := models.Order{
		ID:                   d.ID,
		UserID:               d.UserID,
		OrderType:            models.OrderType(d.OrderType),
		Status:               models.OrderStatus(d.Status),
		PaymentStatus:        models.PaymentStatus(d.PaymentStatus),
		PaymentMethod:        models.PaymentMethod(d.PaymentMethod),
		TotalAmount:          fromDecimal128(d.TotalAmount),
		DeliveryInstructions: d.DeliveryInstructions,
		TableNumber:          d.TableNumber,
		SpecialRequests:      d.SpecialRequests,
		EstimatedReadyAt:     d.EstimatedReadyAt,
		ActualDeliveryTime:   d.ActualDeliveryTime,
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
	}
	if a := d.DeliveryAddress; a != nil {
		o.DeliveryAddress = models.Address{Street: a.Street, City: a.City, State: a.State, ZipCode: a.ZipCode}
	}
	for _, it := range d.Items {
		o.Items = append(o.Items, models.OrderItem{
			ID:                  it.ID,
			OrderID:             d.ID,
			MenuItemID:          it.MenuItemID,
			Name:                it.Name,
			Quantity:            it.Quantity,
			UnitPrice:           fromDecimal128(it.UnitPrice),
			SpecialInstructions: it.SpecialInstructions,
		})
	}
	for _, h := range d.StatusHistory {
		o.StatusHistory = append(o.StatusHistory, models.OrderStatusHistory{
			ID:         h.ID,
			OrderID:    d.ID,
			FromStatus: models.OrderStatus(h.FromStatus),
			ToStatus:   models.OrderStatus(h.ToStatus),
			ChangedBy:  h.ChangedBy,
			Note:       h.Note,
			CreatedAt:  h.CreatedAt,
		})
	}
	return o
}

type mongoOrderRepository struct {
	col *mongo.Collection
}

func (r *mongoOrderRepository) Create(ctx context.Context, order *models.Order) error {
	_, err := r.col.InsertOne(ctx, newOrderDoc(order))
	return translateMongo(err)
}

func (r *mongoOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var doc orderDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, translateMongo(err)
	}
	order := doc.model()
	return &order, nil
}

func (r *mongoOrderRepository) List(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.UserID != "" {
		query["user_id"] = filter.UserID
	}
	if filter.Day != nil {
		start, end := filter.DayBounds()
		query["created_at"] = bson.M{"$gte": start, "$lt": end}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetProjection(bson.M{"status_history": 0})

	cursor, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	defer cursor.Close(ctx)

	var docs []orderDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode orders")
	}
	orders := make([]models.Order, len(docs))
	for i, d := range docs {
		orders[i] = d.model()
	}
	return orders, nil
}

func (r *mongoOrderRepository) UpdateStatus(ctx context.Context, change StatusChange) error {
	set := bson.M{
		"status":     change.To,
		"updated_at": change.At,
	}
	if change.ActualDeliveryTime != nil {
		set["actual_delivery_time"] = *change.ActualDeliveryTime
	}
	update := bson.M{
		"$set":  set,
		"$push": bson.M{"status_history": newHistoryDoc(change.History)},
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": change.OrderID, "status": change.From}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return r.missingOrConflict(ctx, change.OrderID)
	}
	return nil
}

func (r *mongoOrderRepository) UpdatePayment(ctx context.Context, change PaymentChange) error {
	update := bson.M{"$set": bson.M{
		"payment_status": change.To,
		"updated_at":     change.At,
	}}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": change.OrderID, "payment_status": change.From}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return r.missingOrConflict(ctx, change.OrderID)
	}
	return nil
}

func (r *mongoOrderRepository) missingOrConflict(ctx context.Context, id string) error {
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

// ── Users ────────────────────────────────────────────────────────────────────

type mongoUserRepository struct {
	col *mongo.Collection
}

func (r *mongoUserRepository) Create(ctx context.Context, user *models.User) error {
	_, err := r.col.InsertOne(ctx, user)
	return translateMongo(err)
}

func (r *mongoUserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := r.col.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, translateMongo(err)
	}
	return &user, nil
}

func (r *mongoUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *mongoUserRepository) List(ctx context.Context, role models.UserRole) ([]models.User, error) {
	query := bson.M{}
	if role != "" {
		query["role"] = role
	}
	cursor, err := r.col.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, errors.Wrap(err, "decode users")
	}
	return users, nil
}

func (r *mongoUserRepository) Update(ctx context.Context, user *models.User) error {
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		return translateMongo(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoUserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoUserRepository) CountByRole(ctx context.Context, role models.UserRole) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{"role": role})
}
