package notify

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"marketplace_system/internal/domain"
)

// Dispatcher turns committed order events into notifications: a
// persisted Notification row, a websocket push, and one best-effort
// delivery attempt per available contact channel. It never returns or
// re-raises an error; the business state is already committed by the
// time an event reaches it.
type Dispatcher struct {
	db    *gorm.DB
	email EmailSender
	sms   SMSSender
	hub   *Hub // Optional; nil disables websocket push
}

func NewDispatcher(db *gorm.DB, email EmailSender, sms SMSSender, hub *Hub) *Dispatcher {
	return &Dispatcher{db: db, email: email, sms: sms, hub: hub}
}

// Dispatch resolves the recipient set for the event and attempts
// delivery to each. Safe to call from a goroutine.
func (d *Dispatcher) Dispatch(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("panic", r).Error("Notification dispatch panicked")
		}
	}()

	switch ev.Type {
	case EventOrderCreated:
		d.toCustomer(ev, "Order placed",
			fmt.Sprintf("Your order %s has been placed.", ev.Order.OrderNumber))
		d.toVendor(ev.Order.VendorID, ev, "New order",
			fmt.Sprintf("You received order %s.", ev.Order.OrderNumber))
	case EventStatusChanged:
		msg := ev.Message
		if msg == "" {
			msg = fmt.Sprintf("Your order %s is now %s.", ev.Order.OrderNumber, ev.NewStatus)
		}
		d.toCustomer(ev, "Order update", msg)
	case EventDriverAssigned:
		d.toCustomer(ev, "Driver assigned",
			fmt.Sprintf("A driver has picked up your order %s.", ev.Order.OrderNumber))
	case EventLowStock:
		body := "Stock is running low for: "
		for i, p := range ev.LowStock {
			if i > 0 {
				body += ", "
			}
			body += p.Name
		}
		d.toVendor(ev.VendorID, ev, "Low stock alert", body)
	default:
		logrus.WithField("type", ev.Type).Warn("Unknown notification event")
	}
}

// toCustomer notifies the order's customer.
func (d *Dispatcher) toCustomer(ev Event, title, body string) {
	var user domain.User
	if err := d.db.First(&user, ev.Order.CustomerID).Error; err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id": ev.Order.CustomerID,
			"event":   ev.Type,
		}).Warn("Notification recipient lookup failed")
		return
	}
	d.deliver(user, ev, title, body, true, true)
}

// toVendor notifies the user behind a vendor profile, honoring the
// vendor's channel preferences.
func (d *Dispatcher) toVendor(vendorID uint, ev Event, title, body string) {
	var vendor domain.Vendor
	if err := d.db.First(&vendor, vendorID).Error; err != nil {
		logrus.WithFields(logrus.Fields{
			"vendor_id": vendorID,
			"event":     ev.Type,
		}).Warn("Notification vendor lookup failed")
		return
	}
	var user domain.User
	if err := d.db.First(&user, vendor.UserID).Error; err != nil {
		return
	}
	emailOn, smsOn := true, true
	var setting domain.VendorNotificationSetting
	if err := d.db.Where("vendor_id = ?", vendorID).First(&setting).Error; err == nil {
		emailOn, smsOn = setting.EmailEnabled, setting.SMSEnabled
	}
	d.deliver(user, ev, title, body, emailOn, smsOn)
}

// deliver persists the notification row, pushes to websockets, then
// attempts each contact channel independently. A no-op when the user
// has no contact method at all.
func (d *Dispatcher) deliver(user domain.User, ev Event, title, body string, emailOn, smsOn bool) {
	row := domain.Notification{
		UserID: user.ID,
		Type:   string(ev.Type),
		Title:  title,
		Body:   body,
	}
	if ev.Order.ID != 0 {
		row.OrderID = &ev.Order.ID
	}
	if err := d.db.Create(&row).Error; err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id": user.ID,
			"event":   ev.Type,
		}).Error("Failed to persist notification")
	}

	if d.hub != nil {
		d.hub.Push(user.ID, row)
	}

	if emailOn && user.Email != "" {
		if ok := d.email.SendEmail(user.Email, title, "", body); !ok {
			logrus.WithFields(logrus.Fields{
				"user_id": user.ID,
				"channel": "email",
				"event":   ev.Type,
			}).Warn("Notification delivery failed")
		}
	}
	if smsOn && user.Phone != "" {
		if ok := d.sms.SendSMS(user.Phone, title+": "+body); !ok {
			logrus.WithFields(logrus.Fields{
				"user_id": user.ID,
				"channel": "sms",
				"event":   ev.Type,
			}).Warn("Notification delivery failed")
		}
	}
}
