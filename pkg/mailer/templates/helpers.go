package templates

import "time"

const timeLayout = "02 January 2006, 15:04 MST"

// Data is the common map shape all templates read from. Keys are capitalized
// so the same map survives a JSON round trip through the queue.
type Data = map[string]any

func base(appName, name string) Data {
	return Data{
		"AppName": appName,
		"Name":    name,
	}
}

func NewVerificationCodeData(appName, name, code string, expiresAt time.Time) Data {
	d := base(appName, name)
	d["Code"] = code
	d["ExpiresAtText"] = expiresAt.UTC().Format(timeLayout)
	return d
}

func NewResetCodeData(appName, name, code string, expiresAt time.Time) Data {
	d := base(appName, name)
	d["Code"] = code
	d["ExpiresAtText"] = expiresAt.UTC().Format(timeLayout)
	return d
}

// OrderLine is one rendered row of the order-paid email.
type OrderLine struct {
	Name     string `json:"Name"`
	Quantity int    `json:"Quantity"`
	Price    string `json:"Price"`
}

func NewOrderPaidData(appName, name, orderID, total string, paidAt time.Time, lines []OrderLine) Data {
	d := base(appName, name)
	d["OrderID"] = orderID
	d["TotalPrice"] = total
	d["PaidAtText"] = paidAt.UTC().Format(timeLayout)
	rows := make([]map[string]any, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, map[string]any{"Name": l.Name, "Quantity": l.Quantity, "Price": l.Price})
	}
	d["Items"] = rows
	return d
}
