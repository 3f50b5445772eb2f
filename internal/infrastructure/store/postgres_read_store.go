package store

import (
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/example/online-library/internal/readmodel"
)

// PostgresReadStore implements ReadStoreInterface using PostgreSQL.
// One read_* table per collection; carts and orders keep their line items as
// jsonb since they are always loaded whole.
type PostgresReadStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewPostgresReadStore creates a new PostgreSQL-based read store
func NewPostgresReadStore(db *sql.DB) *PostgresReadStore {
	return &PostgresReadStore{db: db}
}

// Set stores a read model
func (rs *PostgresReadStore) Set(collection, id string, data any) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	switch collection {
	case CollectionBooks:
		rs.setBook(data.(*readmodel.BookReadModel))
	case CollectionCategories:
		rs.setCategory(data.(*readmodel.CategoryReadModel))
	case CollectionCarts:
		rs.setCart(data.(*readmodel.CartReadModel))
	case CollectionOrders:
		rs.setOrder(data.(*readmodel.OrderReadModel))
	case CollectionInventory:
		rs.setInventory(data.(*readmodel.InventoryReadModel))
	case CollectionUsers:
		rs.setUser(data.(*readmodel.UserReadModel))
	case CollectionSessions:
		rs.setSession(data.(*readmodel.SessionReadModel))
	case CollectionNotifications:
		rs.setNotification(data.(*readmodel.NotificationReadModel))
	case CollectionBorrows:
		rs.setBorrow(data.(*readmodel.BorrowReadModel))
	case CollectionMemberships:
		rs.setMembership(data.(*readmodel.MembershipReadModel))
	}
}

// Get retrieves a read model by id
func (rs *PostgresReadStore) Get(collection, id string) (any, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.getUnsafe(collection, id)
}

func (rs *PostgresReadStore) getUnsafe(collection, id string) (any, bool) {
	switch collection {
	case CollectionBooks:
		return rs.getBook(id)
	case CollectionCategories:
		return rs.getCategory(id)
	case CollectionCarts:
		return rs.getCart(id)
	case CollectionOrders:
		return rs.getOrder(id)
	case CollectionInventory:
		return rs.getInventory(id)
	case CollectionUsers:
		return rs.getUser(id)
	case CollectionSessions:
		return rs.getSession(id)
	case CollectionNotifications:
		return rs.getNotification(id)
	case CollectionBorrows:
		return rs.getBorrow(id)
	case CollectionMemberships:
		return rs.getMembership(id)
	}
	return nil, false
}

// GetAll retrieves all items in a collection
func (rs *PostgresReadStore) GetAll(collection string) []any {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	switch collection {
	case CollectionBooks:
		return rs.getAllBooks()
	case CollectionCategories:
		return rs.getAllCategories()
	case CollectionCarts:
		return rs.getAllCarts()
	case CollectionOrders:
		return rs.getAllOrders()
	case CollectionInventory:
		return rs.getAllInventory()
	case CollectionUsers:
		return rs.getAllUsers()
	case CollectionSessions:
		return rs.getAllSessions()
	case CollectionNotifications:
		return rs.getAllNotifications()
	case CollectionBorrows:
		return rs.getAllBorrows()
	case CollectionMemberships:
		return rs.getAllMemberships()
	}
	return nil
}

// Delete removes a read model
func (rs *PostgresReadStore) Delete(collection, id string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	table, ok := tableFor(collection)
	if !ok {
		return
	}
	if _, err := rs.db.Exec("DELETE FROM "+table+" WHERE id = $1", id); err != nil {
		log.Error().Err(err).Str("collection", collection).Msg("read store delete failed")
	}
}

// Update modifies a read model using an update function
func (rs *PostgresReadStore) Update(collection, id string, updateFn func(current any) any) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	current, found := rs.getUnsafe(collection, id)
	if !found {
		return false
	}

	updated := updateFn(current)

	switch collection {
	case CollectionBooks:
		rs.setBook(updated.(*readmodel.BookReadModel))
	case CollectionCategories:
		rs.setCategory(updated.(*readmodel.CategoryReadModel))
	case CollectionCarts:
		rs.setCart(updated.(*readmodel.CartReadModel))
	case CollectionOrders:
		rs.setOrder(updated.(*readmodel.OrderReadModel))
	case CollectionInventory:
		rs.setInventory(updated.(*readmodel.InventoryReadModel))
	case CollectionUsers:
		rs.setUser(updated.(*readmodel.UserReadModel))
	case CollectionSessions:
		rs.setSession(updated.(*readmodel.SessionReadModel))
	case CollectionNotifications:
		rs.setNotification(updated.(*readmodel.NotificationReadModel))
	case CollectionBorrows:
		rs.setBorrow(updated.(*readmodel.BorrowReadModel))
	case CollectionMemberships:
		rs.setMembership(updated.(*readmodel.MembershipReadModel))
	}

	return true
}

func tableFor(collection string) (string, bool) {
	switch collection {
	case CollectionBooks:
		return "read_books", true
	case CollectionCategories:
		return "read_categories", true
	case CollectionCarts:
		return "read_carts", true
	case CollectionOrders:
		return "read_orders", true
	case CollectionInventory:
		return "read_inventory", true
	case CollectionUsers:
		return "read_users", true
	case CollectionSessions:
		return "user_sessions", true
	case CollectionNotifications:
		return "read_notifications", true
	case CollectionBorrows:
		return "read_borrows", true
	case CollectionMemberships:
		return "read_memberships", true
	}
	return "", false
}

// Book operations

func (rs *PostgresReadStore) setBook(b *readmodel.BookReadModel) {
	_, err := rs.db.Exec(`
		INSERT INTO read_books (id, category_id, title, author, publisher, description, isbn, price, image_url, pdf_url, rating, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			category_id = EXCLUDED.category_id,
			title = EXCLUDED.title,
			author = EXCLUDED.author,
			publisher = EXCLUDED.publisher,
			description = EXCLUDED.description,
			isbn = EXCLUDED.isbn,
			price = EXCLUDED.price,
			image_url = EXCLUDED.image_url,
			pdf_url = EXCLUDED.pdf_url,
			rating = EXCLUDED.rating,
			updated_at = EXCLUDED.updated_at
	`, b.ID, b.CategoryID, b.Title, b.Author, b.Publisher, b.Description, b.ISBN, b.Price, b.ImageURL, b.PDFURL, b.Rating, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		log.Error().Err(err).Msg("read store: set book failed")
	}
}

func (rs *PostgresReadStore) getBook(id string) (any, bool) {
	var b readmodel.BookReadModel
	err := rs.db.QueryRow(`
		SELECT id, category_id, title, author, publisher, description, isbn, price, image_url, pdf_url, rating, created_at, updated_at
		FROM read_books WHERE id = $1
	`, id).Scan(&b.ID, &b.CategoryID, &b.Title, &b.Author, &b.Publisher, &b.Description, &b.ISBN, &b.Price, &b.ImageURL, &b.PDFURL, &b.Rating, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			log.Error().Err(err).Msg("read store: get book failed")
		}
		return nil, false
	}
	return &b, true
}

func (rs *PostgresReadStore) getAllBooks() []any {
	rows, err := rs.db.Query(`
		SELECT id, category_id, title, author, publisher, description, isbn, price, image_url, pdf_url, rating, created_at, updated_at
		FROM read_books ORDER BY created_at DESC
	`)
	if err != nil {
		log.Error().Err(err).Msg("read store: list books failed")
		return nil
	}
	defer rows.Close()

	var books []any
	for rows.Next() {
		var b readmodel.BookReadModel
		if err := rows.Scan(&b.ID, &b.CategoryID, &b.Title, &b.Author, &b.Publisher, &b.Description, &b.ISBN, &b.Price, &b.ImageURL, &b.PDFURL, &b.Rating, &b.CreatedAt, &b.UpdatedAt); err != nil {
			log.Error().Err(err).Msg("read store: scan book failed")
			continue
		}
		books = append(books, &b)
	}
	return books
}

// Category operations

func (rs *PostgresReadStore) setCategory(c *readmodel.CategoryReadModel) {
	_, err := rs.db.Exec(`
		INSERT INTO read_categories (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			updated_at = EXCLUDED.updated_at
	`, c.ID, c.Name, c.Description, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		log.Error().Err(err).Msg("read store: set category failed")
	}
}

func (rs *PostgresReadStore) getCategory(id string) (any, bool) {
	var c readmodel.CategoryReadModel
	err := rs.db.QueryRow(`
		SELECT id, name, description, created_at, updated_at
		FROM read_categories WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			log.Error().Err(err).Msg("read store: get category failed")
		}
		return nil, false
	}
	return &c, true
}

func (rs *PostgresReadStore) getAllCategories() []any {
	rows, err := rs.db.Query(`
		SELECT id, name, description, created_at, updated_at
		FROM read_categories ORDER BY name ASC
	`)
	if err != nil {
		log.Error().Err(err).Msg("read store: list categories failed")
		return nil
	}
	defer rows.Close()

	var categories []any
	for rows.Next() {
		var c readmodel.CategoryReadModel
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			continue
		}
		categories = append(categories, &c)
	}
	return categories
}

// Cart operations

func (rs *PostgresReadStore) setCart(c *readmodel.CartReadModel) {
	itemsJSON, _ := json.Marshal(c.Items)
	_, err := rs.db.Exec(`
		INSERT INTO read_carts (id, user_id, items, total, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			items = EXCLUDED.items,
			total = EXCLUDED.total,
			updated_at = EXCLUDED.updated_at
	`, c.ID, c.UserID, itemsJSON, c.Total, time.Now())
	if err != nil {
		log.Error().Err(err).Msg("read store: set cart failed")
	}
}

func (rs *PostgresReadStore) getCart(id string) (any, bool) {
	var c readmodel.CartReadModel
	var itemsJSON []byte
	err := rs.db.QueryRow(`
		SELECT id, user_id, items, total FROM read_carts WHERE id = $1
	`, id).Scan(&c.ID, &c.UserID, &itemsJSON, &c.Total)
	if err != nil {
		if err != sql.ErrNoRows {
			log.Error().Err(err).Msg("read store: get cart failed")
		}
		return nil, false
	}
	if err := json.Unmarshal(itemsJSON, &c.Items); err != nil {
		log.Error().Err(err).Msg("read store: decode cart items failed")
		return nil, false
	}
	return &c, true
}

func (rs *PostgresReadStore) getAllCarts() []any {
	rows, err := rs.db.Query(`SELECT id, user_id, items, total FROM read_carts`)
	if err != nil {
		log.Error().Err(err).Msg("read store: list carts failed")
		return nil
	}
	defer rows.Close()

	var carts []any
	for rows.Next() {
		var c readmodel.CartReadModel
		var itemsJSON []byte
		if err := rows.Scan(&c.ID, &c.UserID, &itemsJSON, &c.Total); err != nil {
			continue
		}
		if err := json.Unmarshal(itemsJSON, &c.Items); err != nil {
			continue
		}
		carts = append(carts, &c)
	}
	return carts
}

// Order operations

func (rs *PostgresReadStore) setOrder(o *readmodel.OrderReadModel) {
	itemsJSON, _ := json.Marshal(o.Items)
	_, err := rs.db.Exec(`
		INSERT INTO read_orders (id, user_id, transaction_id, items, total_amount, order_status, payment_status,
			shipping_name, shipping_phone, shipping_address, session_key, bank_transaction_id, card_type,
			payment_date, order_date, shipped_date, delivered_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE SET
			items = EXCLUDED.items,
			order_status = EXCLUDED.order_status,
			payment_status = EXCLUDED.payment_status,
			session_key = EXCLUDED.session_key,
			bank_transaction_id = EXCLUDED.bank_transaction_id,
			card_type = EXCLUDED.card_type,
			payment_date = EXCLUDED.payment_date,
			shipped_date = EXCLUDED.shipped_date,
			delivered_date = EXCLUDED.delivered_date
	`, o.ID, o.UserID, o.TransactionID, itemsJSON, o.TotalAmount, o.OrderStatus, o.PaymentStatus,
		o.ShippingName, o.ShippingPhone, o.ShippingAddress, o.SessionKey, o.BankTransactionID, o.CardType,
		o.PaymentDate, o.OrderDate, o.ShippedDate, o.DeliveredDate)
	if err != nil {
		log.Error().Err(err).Msg("read store: set order failed")
	}
}

func (rs *PostgresReadStore) scanOrder(row interface{ Scan(dest ...any) error }) (*readmodel.OrderReadModel, error) {
	var o readmodel.OrderReadModel
	var itemsJSON []byte
	var sessionKey, bankTranID, cardType sql.NullString
	var paymentDate, shippedDate, deliveredDate sql.NullTime
	err := row.Scan(&o.ID, &o.UserID, &o.TransactionID, &itemsJSON, &o.TotalAmount, &o.OrderStatus, &o.PaymentStatus,
		&o.ShippingName, &o.ShippingPhone, &o.ShippingAddress, &sessionKey, &bankTranID, &cardType,
		&paymentDate, &o.OrderDate, &shippedDate, &deliveredDate)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, err
	}
	o.SessionKey = sessionKey.String
	o.BankTransactionID = bankTranID.String
	o.CardType = cardType.String
	if paymentDate.Valid {
		o.PaymentDate = &paymentDate.Time
	}
	if shippedDate.Valid {
		o.ShippedDate = &shippedDate.Time
	}
	if deliveredDate.Valid {
		o.DeliveredDate = &deliveredDate.Time
	}
	return &o, nil
}

const orderColumns = `id, user_id, transaction_id, items, total_amount, order_status, payment_status,
	shipping_name, shipping_phone, shipping_address, session_key, bank_transaction_id, card_type,
	payment_date, order_date, shipped_date, delivered_date`

func (rs *PostgresReadStore) getOrder(id string) (any, bool) {
	o, err := rs.scanOrder(rs.db.QueryRow(`SELECT `+orderColumns+` FROM read_orders WHERE id = $1`, id))
	if err != nil {
		if err != sql.ErrNoRows {
			log.Error().Err(err).Msg("read store: get order failed")
		}
		return nil, false
	}
	return o, true
}

func (rs *PostgresReadStore) getAllOrders() []any {
	rows, err := rs.db.Query(`SELECT ` + orderColumns + ` FROM read_orders ORDER BY order_date DESC`)
	if err != nil {
		log.Error().Err(err).Msg("read store: list orders failed")
		return nil
	}
	defer rows.Close()

	var orders []any
	for rows.Next() {
		o, err := rs.scanOrder(rows)
		if err != nil {
			log.Error().Err(err).Msg("read store: scan order failed")
			continue
		}
		orders = append(orders, o)
	}
	return orders
}

// GetOrderByTransactionID looks an order up by its gateway transaction id
func (rs *PostgresReadStore) GetOrderByTransactionID(transactionID string) (*readmodel.OrderReadModel, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	o, err := rs.scanOrder(rs.db.QueryRow(`SELECT `+orderColumns+` FROM read_orders WHERE transaction_id = $1`, transactionID))
	if err != nil {
		if err != sql.ErrNoRows {
			log.Error().Err(err).Msg("read store: get order by transaction failed")
		}
		return nil, false
	}
	return o, true
}

// Inventory operations

func (rs *PostgresReadStore) setInventory(inv *readmodel.InventoryReadModel) {
	_, err := rs.db.Exec(`
		INSERT INTO read_inventory (id, total_copies)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET total_copies = EXCLUDED.total_copies
	`, inv.BookID, inv.TotalCopies)
	if err != nil {
		log.Error().Err(err).Msg("read store: set inventory failed")
	}
}

func (rs *PostgresReadStore) getInventory(id string) (any, bool) {
	var inv readmodel.InventoryReadModel
	err := rs.db.QueryRow(`SELECT id, total_copies FROM read_inventory WHERE id = $1`, id).
		Scan(&inv.BookID, &inv.TotalCopies)
	if err != nil {
		if err != sql.ErrNoRows {
			log.Error().Err(err).Msg("read store: get inventory failed")
		}
		return nil, false
	}
	return &inv, true
}

func (rs *PostgresReadStore) getAllInventory() []any {
	rows, err := rs.db.Query(`SELECT id, total_copies FROM read_inventory`)
	if err != nil {
		log.Error().Err(err).Msg("read store: list inventory failed")
		return nil
	}
	defer rows.Close()

	var items []any
	for rows.Next() {
		var inv readmodel.InventoryReadModel
		if err := rows.Scan(&inv.BookID, &inv.TotalCopies); err != nil {
			continue
		}
		items = append(items, &inv)
	}
	return items
}

// User operations

func (rs *PostgresReadStore) setUser(u *readmodel.UserReadModel) {
	_, err := rs.db.Exec(`
		INSERT INTO read_users (id, email, password_hash, name, phone, address, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			password_hash = EXCLUDED.password_hash,
			name = EXCLUDED.name,
			phone = EXCLUDED.phone,
			address = EXCLUDED.address,
			role = EXCLUDED.role,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`, u.ID, u.Email, u.PasswordHash, u.Name, u.Phone, u.Address, u.Role, u.IsActive, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		log.Error().Err(err).Msg("read store: set user failed")
	}
}

func (rs *PostgresReadStore) scanUser(row interface{ Scan(dest ...any) error }) (*readmodel.UserReadModel, error) {
	var u readmodel.UserReadModel
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Phone, &u.Address, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const userColumns = `id, email, password_hash, name, phone, address, role, is_active, created_at, updated_at`

func (rs *PostgresReadStore) getUser(id string) (any, bool) {
	u, err := rs.scanUser(rs.db.QueryRow(`SELECT `+userColumns+` FROM read_users WHERE id = $1`, id))
	if err != nil {
		if err != sql.ErrNoRows {
			log.Error().Err(err).Msg("read store: get user failed")
		}
		return nil, false
	}
	return u, true
}

func (rs *PostgresReadStore) getAllUsers() []any {
	rows, err := rs.db.Query(`SELECT ` + userColumns + ` FROM read_users`)
	if err != nil {
		log.Error().Err(err).Msg("read store: list users failed")
		return nil
	}
	defer rows.Close()

	var users []any
	for rows.Next() {
		u, err := rs.scanUser(rows)
		if err != nil {
			continue
		}
		users = append(users, u)
	}
	return users
}

// GetUserByEmail looks a user up by email
func (rs *PostgresReadStore) GetUserByEmail(email string) (*readmodel.UserReadModel, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	u, err := rs.scanUser(rs.db.QueryRow(`SELECT `+userColumns+` FROM read_users WHERE email = $1`, email))
	if err != nil {
		if err != sql.ErrNoRows {
			log.Error().Err(err).Msg("read store: get user by email failed")
		}
		return nil, false
	}
	return u, true
}

// Session operations

func (rs *PostgresReadStore) setSession(s *readmodel.SessionReadModel) {
	_, err := rs.db.Exec(`
		INSERT INTO user_sessions (id, user_id, refresh_token_hash, expires_at, created_at, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			refresh_token_hash = EXCLUDED.refresh_token_hash,
			expires_at = EXCLUDED.expires_at
	`, s.ID, s.UserID, s.RefreshTokenHash, s.ExpiresAt, s.CreatedAt, s.IPAddress, s.UserAgent)
	if err != nil {
		log.Error().Err(err).Msg("read store: set session failed")
	}
}

func (rs *PostgresReadStore) getSession(id string) (any, bool) {
	var s readmodel.SessionReadModel
	err := rs.db.QueryRow(`
		SELECT id, user_id, refresh_token_hash, expires_at, created_at, ip_address, user_agent
		FROM user_sessions WHERE id = $1
	`, id).Scan(&s.ID, &s.UserID, &s.RefreshTokenHash, &s.ExpiresAt, &s.CreatedAt, &s.IPAddress, &s.UserAgent)
	if err != nil {
		if err != sql.ErrNoRows {
			log.Error().Err(err).Msg("read store: get session failed")
		}
		return nil, false
	}
	return &s, true
}

func (rs *PostgresReadStore) getAllSessions() []any {
	rows, err := rs.db.Query(`
		SELECT id, user_id, refresh_token_hash, expires_at, created_at, ip_address, user_agent
		FROM user_sessions
	`)
	if err != nil {
		log.Error().Err(err).Msg("read store: list sessions failed")
		return nil
	}
	defer rows.Close()

	var sessions []any
	for rows.Next() {
		var s readmodel.SessionReadModel
		if err := rows.Scan(&s.ID, &s.UserID, &s.RefreshTokenHash, &s.ExpiresAt, &s.CreatedAt, &s.IPAddress, &s.UserAgent); err != nil {
			continue
		}
		sessions = append(sessions, &s)
	}
	return sessions
}

// DeleteSessionsByUserID removes all sessions belonging to a user
func (rs *PostgresReadStore) DeleteSessionsByUserID(userID string) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	_, err := rs.db.Exec(`DELETE FROM user_sessions WHERE user_id = $1`, userID)
	return err
}

// Notification operations

func (rs *PostgresReadStore) setNotification(n *readmodel.NotificationReadModel) {
	_, err := rs.db.Exec(`
		INSERT INTO read_notifications (id, user_id, title, message, type, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET is_read = EXCLUDED.is_read
	`, n.ID, n.UserID, n.Title, n.Message, n.Type, n.IsRead, n.CreatedAt)
	if err != nil {
		log.Error().Err(err).Msg("read store: set notification failed")
	}
}

func (rs *PostgresReadStore) getNotification(id string) (any, bool) {
	var n readmodel.NotificationReadModel
	err := rs.db.QueryRow(`
		SELECT id, user_id, title, message, type, is_read, created_at
		FROM read_notifications WHERE id = $1
	`, id).Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.IsRead, &n.CreatedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			log.Error().Err(err).Msg("read store: get notification failed")
		}
		return nil, false
	}
	return &n, true
}

func (rs *PostgresReadStore) getAllNotifications() []any {
	rows, err := rs.db.Query(`
		SELECT id, user_id, title, message, type, is_read, created_at
		FROM read_notifications ORDER BY created_at DESC
	`)
	if err != nil {
		log.Error().Err(err).Msg("read store: list notifications failed")
		return nil
	}
	defer rows.Close()

	var notifications []any
	for rows.Next() {
		var n readmodel.NotificationReadModel
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.IsRead, &n.CreatedAt); err != nil {
			continue
		}
		notifications = append(notifications, &n)
	}
	return notifications
}

// Borrow operations

func (rs *PostgresReadStore) setBorrow(b *readmodel.BorrowReadModel) {
	_, err := rs.db.Exec(`
		INSERT INTO read_borrows (id, user_id, book_id, book_title, borrow_date, due_date, return_date, is_returned, fine_amount, is_fine_paid)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			return_date = EXCLUDED.return_date,
			is_returned = EXCLUDED.is_returned,
			fine_amount = EXCLUDED.fine_amount,
			is_fine_paid = EXCLUDED.is_fine_paid
	`, b.ID, b.UserID, b.BookID, b.BookTitle, b.BorrowDate, b.DueDate, b.ReturnDate, b.IsReturned, b.FineAmount, b.IsFinePaid)
	if err != nil {
		log.Error().Err(err).Msg("read store: set borrow failed")
	}
}

func (rs *PostgresReadStore) getBorrow(id string) (any, bool) {
	var b readmodel.BorrowReadModel
	var returnDate sql.NullTime
	err := rs.db.QueryRow(`
		SELECT id, user_id, book_id, book_title, borrow_date, due_date, return_date, is_returned, fine_amount, is_fine_paid
		FROM read_borrows WHERE id = $1
	`, id).Scan(&b.ID, &b.UserID, &b.BookID, &b.BookTitle, &b.BorrowDate, &b.DueDate, &returnDate, &b.IsReturned, &b.FineAmount, &b.IsFinePaid)
	if err != nil {
		if err != sql.ErrNoRows {
			log.Error().Err(err).Msg("read store: get borrow failed")
		}
		return nil, false
	}
	if returnDate.Valid {
		b.ReturnDate = &returnDate.Time
	}
	return &b, true
}

func (rs *PostgresReadStore) getAllBorrows() []any {
	rows, err := rs.db.Query(`
		SELECT id, user_id, book_id, book_title, borrow_date, due_date, return_date, is_returned, fine_amount, is_fine_paid
		FROM read_borrows ORDER BY borrow_date DESC
	`)
	if err != nil {
		log.Error().Err(err).Msg("read store: list borrows failed")
		return nil
	}
	defer rows.Close()

	var borrows []any
	for rows.Next() {
		var b readmodel.BorrowReadModel
		var returnDate sql.NullTime
		if err := rows.Scan(&b.ID, &b.UserID, &b.BookID, &b.BookTitle, &b.BorrowDate, &b.DueDate, &returnDate, &b.IsReturned, &b.FineAmount, &b.IsFinePaid); err != nil {
			continue
		}
		if returnDate.Valid {
			b.ReturnDate = &returnDate.Time
		}
		borrows = append(borrows, &b)
	}
	return borrows
}

// Membership operations

func (rs *PostgresReadStore) setMembership(m *readmodel.MembershipReadModel) {
	_, err := rs.db.Exec(`
		INSERT INTO read_memberships (id, user_id, status, applied_at, approved_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			approved_at = EXCLUDED.approved_at,
			is_active = EXCLUDED.is_active
	`, m.ID, m.UserID, m.Status, m.AppliedAt, m.ApprovedAt, m.IsActive)
	if err != nil {
		log.Error().Err(err).Msg("read store: set membership failed")
	}
}

func (rs *PostgresReadStore) getMembership(id string) (any, bool) {
	var m readmodel.MembershipReadModel
	var approvedAt sql.NullTime
	err := rs.db.QueryRow(`
		SELECT id, user_id, status, applied_at, approved_at, is_active
		FROM read_memberships WHERE id = $1
	`, id).Scan(&m.ID, &m.UserID, &m.Status, &m.AppliedAt, &approvedAt, &m.IsActive)
	if err != nil {
		if err != sql.ErrNoRows {
			log.Error().Err(err).Msg("read store: get membership failed")
		}
		return nil, false
	}
	if approvedAt.Valid {
		m.ApprovedAt = &approvedAt.Time
	}
	return &m, true
}

func (rs *PostgresReadStore) getAllMemberships() []any {
	rows, err := rs.db.Query(`
		SELECT id, user_id, status, applied_at, approved_at, is_active
		FROM read_memberships ORDER BY applied_at DESC
	`)
	if err != nil {
		log.Error().Err(err).Msg("read store: list memberships failed")
		return nil
	}
	defer rows.Close()

	var memberships []any
	for rows.Next() {
		var m readmodel.MembershipReadModel
		var approvedAt sql.NullTime
		if err := rows.Scan(&m.ID, &m.UserID, &m.Status, &m.AppliedAt, &approvedAt, &m.IsActive); err != nil {
			continue
		}
		if approvedAt.Valid {
			m.ApprovedAt = &approvedAt.Time
		}
		memberships = append(memberships, &m)
	}
	return memberships
}
