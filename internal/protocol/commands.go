// internal/protocol/commands.go
package protocol

import (
	"context"
	"errors"
	"strconv"

	"frontdesk/internal/account"
	"frontdesk/internal/catalog"
	"frontdesk/internal/errdefs"
	"frontdesk/internal/fields"
	"frontdesk/internal/session"
	"frontdesk/internal/timeclock"
	"frontdesk/internal/visitor"
)

const success = "success"

// create,<username>,<password>,<visitor|employee>[,<visitorID>]
func createAccount(ctx context.Context, s *session.Session, args []string) ([]string, error) {
	if err := arity(args, 3, 4); err != nil {
		return nil, err
	}
	role, err := account.ParseRole(args[2])
	if err != nil {
		return nil, err
	}
	id := visitor.NoID
	if len(args) == 4 && args[3] != "" {
		if id, err = visitor.ParseID(args[3]); err != nil {
			return nil, reject(err, "invalid-visitor-id")
		}
	}
	if role == account.RoleVisitor && id == visitor.NoID {
		return nil, reject(errdefs.InvalidArgument("visitor id", "", "required"), "invalid-visitor-id")
	}
	if err := s.CreateAccount(ctx, args[0], args[1], role, id); err != nil {
		return nil, err
	}
	return []string{success}, nil
}

// login,<username>,<password>
func login(ctx context.Context, s *session.Session, args []string) ([]string, error) {
	if err := arity(args, 2, 2); err != nil {
		return nil, err
	}
	if err := s.Login(ctx, args[0], args[1]); err != nil {
		return nil, err
	}
	return []string{success}, nil
}

// logout
func logout(ctx context.Context, s *session.Session, args []string) ([]string, error) {
	if err := arity(args, 0, 0); err != nil {
		return nil, err
	}
	if err := s.Logout(ctx); err != nil {
		return nil, err
	}
	return []string{success}, nil
}

// register,<first>,<last>,<address>,<phone>
func registerVisitor(ctx context.Context, s *session.Session, args []string) ([]string, error) {
	if err := arity(args, 4, 4); err != nil {
		return nil, err
	}
	v, err := s.RegisterVisitor(ctx, visitor.Registration{
		FirstName:   args[0],
		LastName:    args[1],
		Address:     args[2],
		PhoneNumber: args[3],
	})
	if err != nil {
		return nil, err
	}
	return []string{v.ID.String()}, nil
}

// arrive[,<visitorID>]
func beginVisit(ctx context.Context, s *session.Session, args []string) ([]string, error) {
	if err := arity(args, 0, 1); err != nil {
		return nil, err
	}
	id, err := optionalVisitor(args, 0, "invalid-id")
	if err != nil {
		return nil, err
	}
	visit, err := s.BeginVisit(ctx, id)
	if errors.Is(err, errdefs.ErrUnknownVisitor) {
		return nil, reject(err, "invalid-id")
	}
	if err != nil {
		return nil, err
	}
	return []string{visit.VisitorID.String(), timeclock.FormatDate(visit.Start), timeclock.FormatTime(visit.Start)}, nil
}

// depart[,<visitorID>]
func endVisit(ctx context.Context, s *session.Session, args []string) ([]string, error) {
	if err := arity(args, 0, 1); err != nil {
		return nil, err
	}
	id, err := optionalVisitor(args, 0, "invalid-id")
	if err != nil {
		return nil, err
	}
	visit, err := s.EndVisit(ctx, id)
	if errors.Is(err, errdefs.ErrUnknownVisitor) || errors.Is(err, errdefs.ErrNotVisiting) {
		return nil, reject(err, "invalid-id")
	}
	if err != nil {
		return nil, err
	}
	return []string{visit.VisitorID.String(), timeclock.FormatTime(*visit.End), timeclock.FormatDuration(visit.Duration())}, nil
}

// info,<title>,{authors}[,<isbn>[,<publisher>[,<sort order>]]]
func catalogSearch(ctx context.Context, s *session.Session, args []string) ([]string, error) {
	if err := arity(args, 2, 5); err != nil {
		return nil, err
	}
	books, err := s.CatalogSearch(ctx, criteria(args))
	if err != nil {
		return nil, err
	}
	out := []string{strconv.Itoa(len(books))}
	for i, b := range books {
		out = append(out,
			strconv.Itoa(i+1),
			b.ISBN,
			fields.Quote(b.Title),
			fields.FormatList(b.Authors),
			b.PublishedDate,
			strconv.Itoa(b.Available),
		)
	}
	return out, nil
}

// search,<title>[,{authors}[,<isbn>[,<publisher>[,<sort order>]]]]
func storeSearch(ctx context.Context, s *session.Session, args []string) ([]string, error) {
	if err := arity(args, 1, 5); err != nil {
		return nil, err
	}
	books, err := s.StoreSearch(ctx, criteria(args))
	if err != nil {
		return nil, err
	}
	out := []string{strconv.Itoa(len(books))}
	for i, b := range books {
		out = append(out,
			strconv.Itoa(i+1),
			b.ISBN,
			fields.Quote(b.Title),
			fields.FormatList(b.Authors),
			b.PublishedDate,
		)
	}
	return out, nil
}

// borrow,<visitorID>,<id>[,<id>...]
func borrow(ctx context.Context, s *session.Session, args []string) ([]string, error) {
	if err := arity(args, 2, -1); err != nil {
		return nil, err
	}
	id, err := optionalVisitor(args, 0, "invalid-visitor-id")
	if err != nil {
		return nil, err
	}
	due, err := s.Checkout(ctx, id, bookIDs(args[1:]))
	if err != nil {
		return nil, err
	}
	return []string{timeclock.FormatDate(due)}, nil
}

// borrowed[,<visitorID>]
func findBorrowed(ctx context.Context, s *session.Session, args []string) ([]string, error) {
	if err := arity(args, 0, 1); err != nil {
		return nil, err
	}
	id, err := optionalVisitor(args, 0, "invalid-visitor-id")
	if err != nil {
		return nil, err
	}
	checkouts, err := s.FindBorrowed(ctx, id)
	if err != nil {
		return nil, err
	}
	out := []string{strconv.Itoa(len(checkouts))}
	for _, c := range checkouts {
		out = append(out, c.ISBN, fields.Quote(c.Title), timeclock.FormatDate(c.CheckoutDate))
	}
	return out, nil
}

// return,<visitorID>,<id>[,<id>...]
func returnBooks(ctx context.Context, s *session.Session, args []string) ([]string, error) {
	if err := arity(args, 2, -1); err != nil {
		return nil, err
	}
	id, err := optionalVisitor(args, 0, "invalid-visitor-id")
	if err != nil {
		return nil, err
	}
	returned, err := s.ReturnBooks(ctx, id, bookIDs(args[1:]))
	if err != nil {
		return nil, err
	}
	var fines []string
	for _, r := range returned {
		if r.Fine > 0 {
			fines = append(fines, strconv.Itoa(r.Fine))
		}
	}
	if len(fines) == 0 {
		return []string{success}, nil
	}
	return fines, nil
}

// pay,<visitorID>,<amount>
func payFine(ctx context.Context, s *session.Session, args []string) ([]string, error) {
	if err := arity(args, 2, 2); err != nil {
		return nil, err
	}
	id, err := optionalVisitor(args, 0, "invalid-visitor-id")
	if err != nil {
		return nil, err
	}
	amount, err := strconv.Atoi(args[1])
	if err != nil {
		return nil, errdefs.InvalidArgument("amount", args[1], "must be a whole number")
	}
	balance, err := s.PayFine(ctx, id, amount)
	var argErr *errdefs.InvalidArgumentError
	if errors.As(err, &argErr) && argErr.Name == "amount" {
		return nil, reject(err, "invalid-amount", args[1], strconv.Itoa(balance))
	}
	if err != nil {
		return nil, err
	}
	return []string{success, strconv.Itoa(balance)}, nil
}

// buy,<quantity>,<id>[,<id>...]
func purchase(ctx context.Context, s *session.Session, args []string) ([]string, error) {
	if err := arity(args, 2, -1); err != nil {
		return nil, err
	}
	quantity, err := strconv.Atoi(args[0])
	if err != nil || quantity < 1 {
		return nil, reject(errdefs.InvalidArgument("quantity", args[0], "must be a positive number"), "invalid-quantity")
	}
	bought, err := s.PurchaseBooks(ctx, quantity, bookIDs(args[1:]))
	if err != nil {
		return nil, err
	}
	out := []string{success, strconv.Itoa(len(bought))}
	for _, b := range bought {
		out = append(out, b.ISBN, fields.Quote(b.Title), strconv.Itoa(quantity))
	}
	return out, nil
}

// advance,<days>[,<hours>]
func advance(ctx context.Context, s *session.Session, args []string) ([]string, error) {
	if err := arity(args, 1, 2); err != nil {
		return nil, err
	}
	days, err := strconv.Atoi(args[0])
	if err != nil || days < 0 {
		return nil, reject(errdefs.InvalidArgument("days", args[0], "must not be negative"), "invalid-number-of-days", args[0])
	}
	hours := 0
	if len(args) == 2 {
		hours, err = strconv.Atoi(args[1])
		if err != nil || hours < 0 {
			return nil, reject(errdefs.InvalidArgument("hours", args[1], "must not be negative"), "invalid-number-of-hours", args[1])
		}
	}
	if err := s.AdvanceTime(ctx, days, hours); err != nil {
		var argErr *errdefs.InvalidArgumentError
		if errors.As(err, &argErr) {
			switch argErr.Name {
			case "days":
				return nil, reject(err, "invalid-number-of-days", args[0])
			case "hours":
				return nil, reject(err, "invalid-number-of-hours", strconv.Itoa(hours))
			}
		}
		return nil, err
	}
	return []string{success}, nil
}

// datetime
func dateTime(ctx context.Context, s *session.Session, args []string) ([]string, error) {
	if err := arity(args, 0, 0); err != nil {
		return nil, err
	}
	now, err := s.DateTime(ctx)
	if err != nil {
		return nil, err
	}
	return []string{timeclock.FormatDate(now), timeclock.FormatTime(now)}, nil
}

// report[,<days>]
func generateReport(ctx context.Context, s *session.Session, args []string) ([]string, error) {
	if err := arity(args, 0, 1); err != nil {
		return nil, err
	}
	days := 0
	if len(args) == 1 && args[0] != "" {
		var err error
		if days, err = strconv.Atoi(args[0]); err != nil {
			return nil, errdefs.InvalidArgument("days", args[0], "must be a whole number")
		}
	}
	r, err := s.GenerateReport(ctx, days)
	if err != nil {
		return nil, err
	}
	return []string{timeclock.FormatDate(r.Date), r.Text()}, nil
}

// arity checks the argument count; most < 0 means unbounded.
func arity(args []string, least, most int) error {
	if len(args) < least || (most >= 0 && len(args) > most) {
		return errdefs.InvalidArgument("argument count", strconv.Itoa(len(args)), "unexpected number of arguments")
	}
	return nil
}

// optionalVisitor parses args[i] as a visitor ID. A missing or empty field
// leaves the choice to the session.
func optionalVisitor(args []string, i int, reason string) (visitor.ID, error) {
	if i >= len(args) || args[i] == "" {
		return visitor.NoID, nil
	}
	id, err := visitor.ParseID(args[i])
	if err != nil {
		return visitor.NoID, reject(err, reason)
	}
	return id, nil
}

// bookIDs flattens plain and brace-list fields into one list of IDs.
func bookIDs(args []string) []string {
	var ids []string
	for _, a := range args {
		ids = append(ids, fields.List(a)...)
	}
	return ids
}

func criteria(args []string) catalog.Criteria {
	var c catalog.Criteria
	c.Title = args[0]
	if len(args) > 1 {
		c.Authors = fields.List(args[1])
	}
	if len(args) > 2 {
		c.ISBN = args[2]
	}
	if len(args) > 3 {
		c.Publisher = args[3]
	}
	return c
}
