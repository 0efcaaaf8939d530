package policy

import "storefront/internal/domain/model"

type Ability string

const (
	AbilityViewAny Ability = "viewAny"
	AbilityView    Ability = "view"
	AbilityCreate  Ability = "create"
	AbilityUpdate  Ability = "update"
	AbilityDelete  Ability = "delete"
)

// ログインユーザーはuser_id、ゲストはsession_idで持ち主を判定
func OwnsCart(actor model.CartScope, cart model.Cart) bool {
	if actor.Authenticated() {
		return cart.UserID != nil && *cart.UserID == actor.UserID
	}
	if actor.SessionID == "" {
		return false
	}
	return cart.SessionID != nil && *cart.SessionID == actor.SessionID
}

type CartItemPolicy struct{}

func (CartItemPolicy) ViewAny(actor model.CartScope) bool {
	return true
}

func (CartItemPolicy) Create(actor model.CartScope) bool {
	return true
}

func (p CartItemPolicy) View(actor model.CartScope, item model.CartItem, cart model.Cart) bool {
	return p.owns(actor, item, cart)
}

func (p CartItemPolicy) Update(actor model.CartScope, item model.CartItem, cart model.Cart) bool {
	return p.owns(actor, item, cart)
}

func (p CartItemPolicy) Delete(actor model.CartScope, item model.CartItem, cart model.Cart) bool {
	return p.owns(actor, item, cart)
}

func (CartItemPolicy) owns(actor model.CartScope, item model.CartItem, cart model.Cart) bool {
	return item.CartID == cart.ID && OwnsCart(actor, cart)
}

// 未知のabilityは拒否
func Allows(ability Ability, actor model.CartScope, item model.CartItem, cart model.Cart) bool {
	var p CartItemPolicy
	switch ability {
	case AbilityViewAny:
		return p.ViewAny(actor)
	case AbilityCreate:
		return p.Create(actor)
	case AbilityView:
		return p.View(actor, item, cart)
	case AbilityUpdate:
		return p.Update(actor, item, cart)
	case AbilityDelete:
		return p.Delete(actor, item, cart)
	default:
		return false
	}
}
