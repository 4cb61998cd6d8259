package conversation

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ovofacil/orderbot/internal/domain"
)

// All outbound copy lives here, in pt-BR like the audience it serves.

const (
	msgInternalProblem   = "Desculpe, tive um problema interno. Por favor, tente novamente mais tarde."
	msgLostSession       = "Desculpe, perdi as informações do seu pedido. Por favor, refaça seu pedido."
	msgCorruptedOrder    = "Desculpe, as informações do pedido parecem incompletas. Por favor, refaça seu pedido."
	msgMixedOrderShape   = "Para um pedido misto, por favor, diga a quantidade e o tipo para cada item, como '3 dúzias extra e 2 dúzias jumbo'."
	msgInvalidDozens     = "Parece que um dos números de dúzias não é válido. Por favor, diga um número inteiro positivo para cada tipo."
	msgInvalidEggType    = "Não reconheci um dos tipos de ovo. Por favor, diga Extra ou Jumbo para cada quantidade."
	msgInvalidDay        = "Por favor, escolha um dia para entrega válido.\nQual será o dia para entrega?\n1. Segunda\n2. Quinta\n3. Sábado"
	msgInvalidMethod     = "Por favor, escolha uma forma de pagamento válida.\nQual será a forma de pagamento?\n1. Pix\n2. Crédito\n3. Débito\n4. Dinheiro"
	msgAskAddress        = "Por favor, me informe seu endereço para entrega do pedido."
	msgAddressProblem    = "Desculpe, não consegui processar o endereço. Podemos tentar novamente?"
	msgConfigProblem     = "Desculpe, problema ao obter configurações. Tente novamente mais tarde."
	msgLostPendingOrder  = "Desculpe, parece que perdi o pedido. Por favor, refaça seu pedido."
	msgOrderCancelled    = "O pedido foi cancelado com sucesso. Se precisar de algo, estou à disposição."
	msgUnknownConfirm    = "Desculpe, não entendi sua escolha. Por favor, responda com *Confirmar*, *Editar* ou *Cancelar*."
	msgEditMenu          = "Sem problemas! O que você gostaria de alterar? \n\n- *Data de entrega*\n- *Itens*\n- *Método de Pagamento*\n- *Endereço*"
	msgEditMenuInvalid   = "Ação inválida. Por favor, informe o que deseja alterar: \n- *Data de entrega*\n- *Itens*\n- *Método de Pagamento*\n- *Endereço*"
	msgEditLost          = "Desculpe. Não consegui localizar o pedido."
	msgEditStageLost     = "Não consegui localizar o pedido para edição."
	msgDateUpdated       = "Data de entrega atualizada com sucesso!"
	msgAddressUpdated    = "Endereço atualizado com sucesso!"
	msgItemRemoved       = "Item removido com sucesso."
	msgEditInvalidMethod = "Por favor, informe um método de pagamento válido: 1. Pix, 2. Crédito, 3. Débito ou 4. Dinheiro."
	msgEditAskDay        = "Por favor, me diga se deseja para segunda, quinta ou sábado."
	msgEditAskMethod     = "Escolha o método de pagamento\n1. Pix\n2. Crédito\n3. Débito\n4. Dinheiro"
	msgEditAskAddress    = "Qual é o novo endereço?"
	msgEditInvalidDay    = "Desculpe, o dia informado não é válido. Tente novamente com segunda, quinta ou sábado."
	msgItemActionInvalid = "Ação inválida. Por favor, diga se deseja alterar a *Quantidade*, o *Tipo* ou *Excluir* o item."
	msgItemLost          = "Não consegui localizar o item para editar."
	msgAskItemQuantity   = "Qual é a nova quantidade de dúzias para este item?"
	msgAskItemType       = "Qual é o novo tipo de ovo? (extra ou jumbo)"
	msgInvalidItemQty    = "Por favor, informe uma quantidade válida (número inteiro positivo de dúzias)."
	msgInvalidItemType   = "Por favor, informe um tipo de ovo válido: *extra* ou *jumbo*."
	msgNoPendingOrders   = "Você não tem nenhum pedido pendente no momento!"
	msgNoCancellable     = "Você não tem nenhum pedido pendente que possa ser cancelado no momento."
	msgCancelAskNumber   = "Por favor, diga apenas o *número* do pedido que você deseja cancelar."
	msgCancelLostList    = "Desculpe, perdi as informações dos pedidos. Podemos tentar de novo?"
	msgNoLongerPending   = "Este pedido não está mais pendente e não pode ser cancelado."
)

var brl = message.NewPrinter(language.BrazilianPortuguese)

// formatCentavos renders integer centavos as Brazilian reais, e.g. 590000 ->
// "R$ 5.900,00".
func formatCentavos(m domain.Money) string {
	return brl.Sprintf("R$ %.2f", float64(m)/100)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "Data desconhecida"
	}
	return t.Format("02/01/2006")
}

// orderSummary builds the full confirmation text for a priced order.
func orderSummary(order domain.Order) string {
	var b strings.Builder
	b.WriteString("📦 *Resumo do seu pedido:*\n\nItems:\n")
	for _, item := range order.Items {
		fmt.Fprintf(&b, "- %d dúzias de ovos %s (%s)\n", item.Quantity, item.Variant.Display(), formatCentavos(item.ItemValue))
	}
	b.WriteString("\n")
	if order.ShippingCost > 0 {
		fmt.Fprintf(&b, "🚚 *Custo de entrega:* %s\n", formatCentavos(order.ShippingCost))
	}
	fmt.Fprintf(&b, "💰 *Total:* %s\n", formatCentavos(order.Total))
	fmt.Fprintf(&b, "💳 *Forma de pagamento:* %s\n", order.PaymentMethod)
	fmt.Fprintf(&b, "📍 *Endereço de entrega:* %s\n", order.ShippingAddress.Format())
	fmt.Fprintf(&b, "📅 *Data de entrega:* %s\n\n", formatDate(order.DeliveryDate))
	b.WriteString("Escolha: *Confirmar*, *Editar*, ou *Cancelar*")
	return b.String()
}

// itemLines renders the numbered item list used by the item-edit menus.
func itemLines(items []domain.LineItem) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = fmt.Sprintf("%d. %d dúzias de ovos %s", i+1, item.Quantity, item.Variant.Display())
	}
	return strings.Join(lines, "\n")
}

func msgChooseItem(items []domain.LineItem) string {
	return fmt.Sprintf("Estes são os itens do seu pedido:\n\n%s\n\nPor favor, informe o número do item que deseja editar.", itemLines(items))
}

func msgInvalidItemNumber(items []domain.LineItem) string {
	return fmt.Sprintf("Número inválido. Por favor, escolha um número da lista:\n\n%s", itemLines(items))
}

// pendingOrdersList renders the "my orders" view.
func pendingOrdersList(orders []domain.Order) string {
	var b strings.Builder
	b.WriteString("Aqui estão seus pedidos pendentes:\n\n")
	for _, o := range orders {
		fmt.Fprintf(&b, "*Pedido ID:* %s\n", o.OrderID)
		fmt.Fprintf(&b, "*Data:* %s\n", formatDate(o.CreationDate))
		fmt.Fprintf(&b, "*Data para Entrega:* %s\n", formatDate(o.DeliveryDate))
		fmt.Fprintf(&b, "*Status:* %s\n", o.DeliveryStatus)
		b.WriteString("*Itens:*\n")
		for _, item := range o.Items {
			fmt.Fprintf(&b, "- %d dúzia(s) de ovos %s\n", item.Quantity, item.Variant.Display())
		}
		fmt.Fprintf(&b, "*Total:* %s\n", formatCentavos(o.Total))
		if o.ShippingCost > 0 {
			fmt.Fprintf(&b, "*Custo de Entrega:* %s\n", formatCentavos(o.ShippingCost))
		}
		b.WriteString("\n---\n\n")
	}
	return b.String()
}

// cancellableOrdersList renders the numbered cancellation menu.
func cancellableOrdersList(orders []domain.Order) string {
	parts := []string{"Aqui estão seus pedidos pendentes. Qual deles você gostaria de cancelar? Por favor, diga o *número*:\n"}
	for i, o := range orders {
		var b strings.Builder
		fmt.Fprintf(&b, "*%d.* Pedido ID: %s\n", i+1, o.OrderID)
		fmt.Fprintf(&b, "   Data: %s\n", formatDate(o.CreationDate))
		if len(o.Items) > 0 {
			itemBits := make([]string, len(o.Items))
			for j, item := range o.Items {
				itemBits[j] = fmt.Sprintf("%d %s", item.Quantity, item.Variant.Display())
			}
			fmt.Fprintf(&b, "   Itens: %s\n", strings.Join(itemBits, ", "))
		}
		fmt.Fprintf(&b, "   Total: %s", formatCentavos(o.Total))
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n\n")
}

func msgChooseInRange(n int) string {
	return fmt.Sprintf("Por favor, escolha um número entre 1 e %d.", n)
}

func msgOrderConfirmed(orderID string) string {
	return fmt.Sprintf("Seu pedido foi confirmado e salvo com sucesso! O ID do pedido é %s.", orderID)
}

func msgOrderCancelledByID(orderID string) string {
	return fmt.Sprintf("Ok! Seu pedido com ID %s foi cancelado.", orderID)
}

func msgMethodUpdated(method string) string {
	return fmt.Sprintf("Método de pagamento atualizado para: %s.", method)
}

func msgQuantityUpdated(quantity int) string {
	return fmt.Sprintf("Quantidade atualizada para %d dúzias.", quantity)
}

func msgTypeUpdated(v domain.Variant) string {
	return fmt.Sprintf("Tipo de ovo atualizado para %s.", v.Display())
}

func msgItemChosen(number int, item domain.LineItem) string {
	return fmt.Sprintf("Você escolheu o item %d: %d dúzias de ovos %s.\nDeseja alterar a *Quantidade*, o *Tipo* ou *Excluir* este item?", number, item.Quantity, item.Variant.Display())
}
