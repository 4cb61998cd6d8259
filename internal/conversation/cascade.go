package conversation

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ovofacil/orderbot/internal/awsx"
	"github.com/ovofacil/orderbot/internal/domain"
)

// fieldSpec describes one correctable order field: how to validate it inside
// a draft, which slot re-arms it, what to ask the client on failure, and how
// a corrected value lands in the draft. The ordered table below is the whole
// correction router; there is one cascade, parameterized per field.
type fieldSpec struct {
	field  domain.Field
	slot   string
	prompt string

	// validate checks (and, where applicable, normalizes) the field inside
	// the draft. It must be idempotent and side-effect-free beyond
	// normalization.
	validate func(d *domain.OrderDraft) *domain.FieldError

	// clearValue removes the field from a draft copy before the draft is
	// parked in this field's correction slot.
	clearValue func(d *domain.OrderDraft)

	// applyParam writes the turn's corrected value into the draft.
	applyParam func(d *domain.OrderDraft, p Params)

	// checkShape optionally rejects a corrected value whose shape cannot
	// match the rest of the draft (parallel-array length). Returns a
	// re-prompt message, or "" when the shape is fine.
	checkShape func(d *domain.OrderDraft, p Params) string
}

// orderFields is the strict priority order of the cascade:
// dozens -> egg type -> delivery day -> payment method.
var orderFields = []fieldSpec{
	{
		field:  domain.FieldDozens,
		slot:   slotDozens,
		prompt: msgInvalidDozens,
		validate: func(d *domain.OrderDraft) *domain.FieldError {
			_, err := domain.ValidateDozens(d.Quantities)
			return err
		},
		clearValue: func(d *domain.OrderDraft) { d.Quantities = nil },
		applyParam: func(d *domain.OrderDraft, p Params) { d.Quantities = p.Dozens },
		checkShape: func(d *domain.OrderDraft, p Params) string {
			if d.Variants != nil && len(p.Dozens) != len(d.Variants) {
				return fmt.Sprintf("A quantidade de números que você disse não corresponde à quantidade de tipos de ovos que você pediu anteriormente. Por favor, diga a quantidade correta para cada tipo de ovo que você quer (%s).", strings.Join(d.Variants, " e "))
			}
			return ""
		},
	},
	{
		field:  domain.FieldEggType,
		slot:   slotEggType,
		prompt: msgInvalidEggType,
		validate: func(d *domain.OrderDraft) *domain.FieldError {
			variants, err := domain.ParseVariants(d.Variants)
			if err != nil {
				return err
			}
			for i, v := range variants {
				d.Variants[i] = string(v)
			}
			return nil
		},
		clearValue: func(d *domain.OrderDraft) { d.Variants = nil },
		applyParam: func(d *domain.OrderDraft, p Params) { d.Variants = p.EggTypes },
		checkShape: func(d *domain.OrderDraft, p Params) string {
			if d.Quantities != nil && len(p.EggTypes) != len(d.Quantities) {
				return "A quantidade de tipos de ovo que você disse não corresponde à quantidade de dúzias que você pediu anteriormente. Por favor, diga o tipo correto (Extra ou Jumbo) para cada quantidade."
			}
			return ""
		},
	},
	{
		field:  domain.FieldDeliveryDay,
		slot:   slotDeliveryDay,
		prompt: msgInvalidDay,
		validate: func(d *domain.OrderDraft) *domain.FieldError {
			if d.DayCode == nil {
				return &domain.FieldError{Field: domain.FieldDeliveryDay, Reason: "missing delivery day"}
			}
			_, err := domain.ParseDeliveryDay(*d.DayCode)
			return err
		},
		clearValue: func(d *domain.OrderDraft) { d.DayCode = nil },
		applyParam: func(d *domain.OrderDraft, p Params) { d.DayCode = p.DeliveryDay },
	},
	{
		field:  domain.FieldMethod,
		slot:   slotMethod,
		prompt: msgInvalidMethod,
		validate: func(d *domain.OrderDraft) *domain.FieldError {
			if d.MethodCode == nil {
				return &domain.FieldError{Field: domain.FieldMethod, Reason: "missing payment method"}
			}
			_, err := domain.ParsePaymentMethod(*d.MethodCode)
			return err
		},
		clearValue: func(d *domain.OrderDraft) { d.MethodCode = nil },
		applyParam: func(d *domain.OrderDraft, p Params) { d.MethodCode = p.Method },
	},
}

// HandleOrder is the first-pass intake of a full order statement. Fields are
// validated in priority order; the first failure parks the rest of the draft
// in that field's correction slot and asks for just that field.
func (e *Engine) HandleOrder(ctx context.Context, req TurnRequest) (*Reply, error) {
	reply := &Reply{}
	err := e.handleOrder(ctx, req, reply)
	return reply, e.guard(ctx, req.ClientID, "", reply, err)
}

func (e *Engine) handleOrder(ctx context.Context, req TurnRequest, reply *Reply) error {
	// An intake with mismatched or missing item arrays is a plain re-ask:
	// nothing has been collected yet, so no correction slot is armed.
	if len(req.Params.Dozens) == 0 || len(req.Params.EggTypes) == 0 ||
		len(req.Params.Dozens) != len(req.Params.EggTypes) {
		reply.Say(msgMixedOrderShape)
		return nil
	}

	draft := domain.OrderDraft{
		ClientID:   req.ClientID,
		Quantities: req.Params.Dozens,
		Variants:   req.Params.EggTypes,
		DayCode:    req.Params.DeliveryDay,
		MethodCode: req.Params.Method,
	}
	return e.runCascade(ctx, reply, &draft, 0)
}

// HandleCorrectedDozens, HandleCorrectedEggType, HandleCorrectedDeliveryDay
// and HandleCorrectedMethod are the retry passes: each consumes its stage's
// correction slot and resumes the cascade from there.
func (e *Engine) HandleCorrectedDozens(ctx context.Context, req TurnRequest) (*Reply, error) {
	return e.correctionTurn(ctx, req, 0)
}

func (e *Engine) HandleCorrectedEggType(ctx context.Context, req TurnRequest) (*Reply, error) {
	return e.correctionTurn(ctx, req, 1)
}

func (e *Engine) HandleCorrectedDeliveryDay(ctx context.Context, req TurnRequest) (*Reply, error) {
	return e.correctionTurn(ctx, req, 2)
}

func (e *Engine) HandleCorrectedMethod(ctx context.Context, req TurnRequest) (*Reply, error) {
	return e.correctionTurn(ctx, req, 3)
}

func (e *Engine) correctionTurn(ctx context.Context, req TurnRequest, idx int) (*Reply, error) {
	reply := &Reply{}
	spec := orderFields[idx]
	err := e.correctedField(ctx, req, reply, idx)
	return reply, e.guard(ctx, req.ClientID, spec.slot, reply, err)
}

func (e *Engine) correctedField(ctx context.Context, req TurnRequest, reply *Reply, idx int) error {
	spec := orderFields[idx]

	slot, err := e.slots.Get(ctx, req.ClientID, spec.slot)
	if err != nil {
		return err
	}
	if slot == nil {
		reply.Say(msgLostSession)
		return e.slots.Clear(ctx, req.ClientID, spec.slot)
	}

	var draft domain.OrderDraft
	if err := unmarshalPayload(slot.Payload, &draft); err != nil {
		e.log.Warn("unreadable correction slot payload",
			zap.String("client_id", req.ClientID), zap.String("slot", spec.slot))
		reply.Say(msgLostSession)
		return e.slots.Clear(ctx, req.ClientID, spec.slot)
	}
	draft.ClientID = req.ClientID

	// Structural corruption of the carried arrays cannot be fixed by
	// re-asking one field: retire the slot and ask for a restart.
	if err := draft.CheckStructure(); err != nil {
		e.log.Warn("corrupted draft in correction slot",
			zap.String("client_id", req.ClientID), zap.String("slot", spec.slot))
		reply.Say(msgCorruptedOrder)
		return e.slots.Clear(ctx, req.ClientID, spec.slot)
	}

	// A corrected value whose shape cannot line up with the rest of the
	// draft re-prompts this same stage, keeping the stored draft as-is.
	if spec.checkShape != nil {
		if msg := spec.checkShape(&draft, req.Params); msg != "" {
			reply.Say(msg)
			return e.armSlot(ctx, reply, spec, &draft, false)
		}
	}

	spec.applyParam(&draft, req.Params)

	// An invalid corrected value re-enters the same stage with the previous
	// draft payload unchanged and a fresh lifespan.
	if ferr := spec.validate(&draft); ferr != nil {
		e.countReprompt(ctx)
		reply.Say(spec.prompt)
		return e.armSlot(ctx, reply, spec, &draft, true)
	}

	if err := e.slots.Clear(ctx, req.ClientID, spec.slot); err != nil {
		return err
	}
	return e.runCascade(ctx, reply, &draft, idx+1)
}

// runCascade re-validates every field from start onward in priority order.
// Correcting one field does not re-certify the ones collected before the
// cascade began. The first failure decides the next active slot; a clean run
// hands off to address resolution and finalization.
func (e *Engine) runCascade(ctx context.Context, reply *Reply, draft *domain.OrderDraft, start int) error {
	for i := start; i < len(orderFields); i++ {
		spec := orderFields[i]
		if ferr := spec.validate(draft); ferr != nil {
			e.log.Info("cascade stopped at invalid field",
				zap.String("client_id", draft.ClientID),
				zap.String("field", string(spec.field)),
				zap.String("reason", ferr.Reason),
			)
			reply.Say(spec.prompt)
			return e.armSlot(ctx, reply, spec, draft, true)
		}
	}
	return e.continueAfterValidation(ctx, reply, draft, nil)
}

// armSlot parks the draft in the field's correction slot. When clearField is
// set the (invalid or unknown) value of that field is dropped from the
// parked copy first.
func (e *Engine) armSlot(ctx context.Context, reply *Reply, spec fieldSpec, draft *domain.OrderDraft, clearField bool) error {
	parked := *draft
	if clearField {
		spec.clearValue(&parked)
	}
	payload, err := marshalPayload(parked)
	if err != nil {
		return err
	}
	return e.slots.Put(ctx, draft.ClientID, spec.slot, payload, correctionLifespan)
}

func (e *Engine) countReprompt(ctx context.Context) {
	if e.metrics == nil {
		return
	}
	if err := e.metrics.Count(ctx, awsx.MetricCorrectionReprompt, 1); err != nil {
		e.log.Warn("metric emit failed", zap.Error(err))
	}
}
