package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"

	"tiffinloop/internal/domain"
)

// CreateOrder persists the order and its items in one transaction. A
// violation of the subscription-slot uniqueness index surfaces as
// domain.ErrDuplicate so the generator can count it as skipped.
func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx, `
		INSERT INTO orders (customer_id, partner_id, total_amount, delivery_fee, status,
			delivery_address, delivery_instructions, scheduled_for,
			subscription_id, plan_id, day_of_week, slot)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, 0), NULLIF($10, 0), NULLIF($11, ''), NULLIF($12, ''))
		RETURNING id, created_at
	`, order.CustomerID, order.PartnerID, order.TotalAmount, order.DeliveryFee, order.Status,
		order.DeliveryAddress, order.DeliveryInstructions, order.ScheduledFor,
		order.SubscriptionID, order.PlanID, order.DayOfWeek, string(order.Slot),
	).Scan(&order.ID, &order.CreatedAt); err != nil {
		return translateErr(err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, meal_id, name, quantity, price, instructions)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, item.OrderID, item.MealID, item.Name, item.Quantity, item.Price, item.Instructions).Scan(&item.ID); err != nil {
			return translateErr(err)
		}
	}

	return tx.Commit()
}

func (r *Repository) GetOrder(ctx context.Context, id int) (*domain.Order, error) {
	var order domain.Order
	var payment, review []byte
	var instructions, cancelReason, cancelMessage, dayOfWeek, slot sql.NullString
	var subscriptionID, planID sql.NullInt64

	err := r.DB.QueryRowContext(ctx, `
		SELECT id, customer_id, partner_id, total_amount, delivery_fee, status,
			delivery_address, COALESCE(delivery_instructions, ''), is_paid, payment,
			scheduled_for, delivered_at, estimated_ready_at, review,
			cancel_reason, cancel_message, subscription_id, plan_id, day_of_week, slot,
			created_at, updated_at
		FROM orders WHERE id = $1
	`, id).Scan(&order.ID, &order.CustomerID, &order.PartnerID, &order.TotalAmount, &order.DeliveryFee,
		&order.Status, &order.DeliveryAddress, &instructions, &order.IsPaid, &payment,
		&order.ScheduledFor, &order.DeliveredAt, &order.EstimatedReadyAt, &review,
		&cancelReason, &cancelMessage, &subscriptionID, &planID, &dayOfWeek, &slot,
		&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}

	order.DeliveryInstructions = instructions.String
	order.CancelReason = cancelReason.String
	order.CancelMessage = cancelMessage.String
	order.SubscriptionID = int(subscriptionID.Int64)
	order.PlanID = int(planID.Int64)
	order.DayOfWeek = dayOfWeek.String
	order.Slot = domain.Slot(slot.String)
	if len(payment) > 0 {
		var p domain.PaymentDetail
		if json.Unmarshal(payment, &p) == nil {
			order.Payment = &p
		}
	}
	if len(review) > 0 {
		var rev domain.OrderReview
		if json.Unmarshal(review, &rev) == nil {
			order.Review = &rev
		}
	}

	items, err := r.orderItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return &order, nil
}

func (r *Repository) orderItems(ctx context.Context, orderID int) ([]domain.OrderItem, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, order_id, meal_id, name, quantity, price, COALESCE(instructions, '')
		FROM order_items WHERE order_id = $1 ORDER BY id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.MealID, &item.Name, &item.Quantity, &item.Price, &item.Instructions); err != nil {
			continue
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdateOrder rewrites the editable fields and, when items are supplied,
// replaces the item list in the same transaction.
func (r *Repository) UpdateOrder(ctx context.Context, order *domain.Order) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET total_amount = $1, delivery_fee = $2, delivery_address = $3,
			delivery_instructions = $4, scheduled_for = $5, updated_at = now()
		WHERE id = $6
	`, order.TotalAmount, order.DeliveryFee, order.DeliveryAddress,
		order.DeliveryInstructions, order.ScheduledFor, order.ID); err != nil {
		return translateErr(err)
	}

	if len(order.Items) > 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, order.ID); err != nil {
			return translateErr(err)
		}
		for i := range order.Items {
			item := &order.Items[i]
			item.OrderID = order.ID
			if err := tx.QueryRowContext(ctx, `
				INSERT INTO order_items (order_id, meal_id, name, quantity, price, instructions)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING id
			`, item.OrderID, item.MealID, item.Name, item.Quantity, item.Price, item.Instructions).Scan(&item.ID); err != nil {
				return translateErr(err)
			}
		}
	}

	return tx.Commit()
}

func (r *Repository) UpdateOrderStatus(ctx context.Context, order *domain.Order) error {
	result, err := r.DB.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, delivered_at = $2, estimated_ready_at = $3,
			cancel_reason = NULLIF($4, ''), cancel_message = NULLIF($5, ''), updated_at = now()
		WHERE id = $6
	`, order.Status, order.DeliveredAt, order.EstimatedReadyAt,
		order.CancelReason, order.CancelMessage, order.ID)
	if err != nil {
		return translateErr(err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) MarkOrderPaid(ctx context.Context, id int, payment domain.PaymentDetail) error {
	blob, err := json.Marshal(payment)
	if err != nil {
		return err
	}
	result, err := r.DB.ExecContext(ctx, `
		UPDATE orders SET is_paid = true, payment = $1, updated_at = now()
		WHERE id = $2 AND is_paid = false
	`, blob, id)
	if err != nil {
		return translateErr(err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) SaveOrderReview(ctx context.Context, id int, review domain.OrderReview) error {
	blob, err := json.Marshal(review)
	if err != nil {
		return err
	}
	result, err := r.DB.ExecContext(ctx, `
		UPDATE orders SET review = $1, updated_at = now()
		WHERE id = $2 AND review IS NULL
	`, blob, id)
	if err != nil {
		return translateErr(err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) SaveQRCode(ctx context.Context, id int, qr []byte) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE orders SET qr_code = $1 WHERE id = $2`, qr, id)
	return translateErr(err)
}

func (r *Repository) GetQRCode(ctx context.Context, id int) ([]byte, error) {
	var qr []byte
	if err := r.DB.QueryRowContext(ctx, `SELECT qr_code FROM orders WHERE id = $1`, id).Scan(&qr); err != nil {
		return nil, translateErr(err)
	}
	return qr, nil
}

// ListOrders applies the compound filter; zero values mean "any".
func (r *Repository) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	query := `
		SELECT id, customer_id, partner_id, total_amount, delivery_fee, status,
			delivery_address, is_paid, scheduled_for, subscription_id, created_at
		FROM orders WHERE 1=1`
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.CustomerID != 0 {
		query += " AND customer_id = " + arg(filter.CustomerID)
	}
	if filter.PartnerID != 0 {
		query += " AND partner_id = " + arg(filter.PartnerID)
	}
	if filter.SubscriptionID != 0 {
		query += " AND subscription_id = " + arg(filter.SubscriptionID)
	}
	if filter.Status != "" {
		query += " AND status = " + arg(string(filter.Status))
	}
	if !filter.From.IsZero() {
		query += " AND scheduled_for >= " + arg(filter.From)
	}
	if !filter.To.IsZero() {
		query += " AND scheduled_for < " + arg(filter.To)
	}
	query += " ORDER BY scheduled_for"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var order domain.Order
		var subscriptionID sql.NullInt64
		if err := rows.Scan(&order.ID, &order.CustomerID, &order.PartnerID, &order.TotalAmount,
			&order.DeliveryFee, &order.Status, &order.DeliveryAddress, &order.IsPaid,
			&order.ScheduledFor, &subscriptionID, &order.CreatedAt); err != nil {
			continue
		}
		order.SubscriptionID = int(subscriptionID.Int64)
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

