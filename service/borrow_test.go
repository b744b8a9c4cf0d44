package service

import (
	"testing"
	"time"

	"Gin_postgres_redis_lendshare/models"
)

func TestCreateRequestNotifiesOwner(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "olivia")
	borrower := env.user(t, "ben")
	it := env.item(t, owner, "Cordless drill")

	req := env.request(t, borrower, it)
	if req.Status != models.RequestPending {
		t.Fatalf("status = %s, want pending", req.Status)
	}
	if req.OwnerID != owner.ID {
		t.Fatalf("owner snapshot = %s, want %s", req.OwnerID, owner.ID)
	}
	if got := env.itemStatus(t, it.ID); got != models.ItemRequested {
		t.Fatalf("item status = %s, want requested", got)
	}

	notes := env.notifications(t, owner.ID, models.NotifyRequest)
	if len(notes) != 1 {
		t.Fatalf("owner request notifications = %d, want 1", len(notes))
	}
	p := notes[0].Payload()
	if p.Request == nil || p.Request.RequestID != req.ID || p.Request.CounterpartyID != borrower.ID {
		t.Fatalf("unexpected payload %+v", p)
	}
	if notes[0].RequestID == nil || *notes[0].RequestID != req.ID {
		t.Fatalf("related_request = %v", notes[0].RequestID)
	}
	if len(env.out.sent) != 1 {
		t.Fatalf("dispatched %d notifications, want 1", len(env.out.sent))
	}
}

func TestCreateRequestValidation(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "olivia")
	borrower := env.user(t, "ben")
	it := env.item(t, owner, "Ladder")

	start := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)
	before := start.Add(-time.Hour)

	tests := []struct {
		name  string
		actor string
		in    CreateRequestInput
	}{
		{"missing item", borrower.ID, CreateRequestInput{}},
		{"unknown item", borrower.ID, CreateRequestInput{ItemID: "00000000-0000-0000-0000-000000000000"}},
		{"own item", owner.ID, CreateRequestInput{ItemID: it.ID}},
		{"end before start", borrower.ID, CreateRequestInput{ItemID: it.ID, StartDate: &start, EndDate: &before}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.core.Borrow.CreateRequest(env.ctx, tt.actor, tt.in)
			wantErr(t, err, ErrValidation)
		})
	}
	if n := len(env.notifications(t, owner.ID, "")); n != 0 {
		t.Fatalf("owner got %d notifications from rejected requests", n)
	}
}

func TestCreateRequestUnderReview(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "olivia")
	borrower := env.user(t, "ben")
	it := env.item(t, owner, "Tent")

	st := models.ItemUnderReview
	if _, err := env.core.Catalog.UpdateItem(env.ctx, owner.ID, it.ID, ItemPatch{Status: &st}); err != nil {
		t.Fatalf("set under_review: %v", err)
	}
	_, err := env.core.Borrow.CreateRequest(env.ctx, borrower.ID, CreateRequestInput{ItemID: it.ID})
	wantErr(t, err, ErrValidation)
}

func TestApproveCreatesRecord(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "olivia")
	borrower := env.user(t, "ben")
	it := env.item(t, owner, "Cordless drill")
	req := env.request(t, borrower, it)

	out, err := env.core.Borrow.UpdateRequestStatus(env.ctx, owner.ID, req.ID, models.RequestApproved)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if out.Status != models.RequestApproved {
		t.Fatalf("status = %s, want approved", out.Status)
	}
	rec := out.Record
	if rec == nil || rec.Status != models.RecordBorrowed {
		t.Fatalf("record = %+v, want one borrowed record", rec)
	}
	if rec.ReturnDate != nil {
		t.Fatalf("fresh record has return_date %v", rec.ReturnDate)
	}
	if got := rec.DueDate.Sub(rec.StartDate); got != DefaultLoanDuration {
		t.Fatalf("loan length = %v, want %v", got, DefaultLoanDuration)
	}
	if got := env.itemStatus(t, it.ID); got != models.ItemBorrowed {
		t.Fatalf("item status = %s, want borrowed", got)
	}

	approved := env.notifications(t, borrower.ID, models.NotifyApproved)
	if len(approved) != 1 {
		t.Fatalf("borrower approved notifications = %d, want 1", len(approved))
	}
	if n := len(env.notifications(t, borrower.ID, "")); n != 1 {
		t.Fatalf("borrower notifications = %d, want exactly 1", n)
	}
}

func TestApproveUsesRequestedWindow(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "olivia")
	borrower := env.user(t, "ben")
	it := env.item(t, owner, "Kayak")

	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 12, 18, 0, 0, 0, time.UTC)
	req, err := env.core.Borrow.CreateRequest(env.ctx, borrower.ID, CreateRequestInput{
		ItemID: it.ID, StartDate: &start, EndDate: &end, Message: "weekend trip",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	out, err := env.core.Borrow.UpdateRequestStatus(env.ctx, owner.ID, req.ID, models.RequestApproved)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !out.Record.StartDate.Equal(start) || !out.Record.DueDate.Equal(end) {
		t.Fatalf("record window = %v..%v, want %v..%v", out.Record.StartDate, out.Record.DueDate, start, end)
	}
}

func TestApproveTwiceNotifiesOnce(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "olivia")
	borrower := env.user(t, "ben")
	it := env.item(t, owner, "Projector")
	req := env.request(t, borrower, it)

	for i := 0; i < 2; i++ {
		if _, err := env.core.Borrow.UpdateRequestStatus(env.ctx, owner.ID, req.ID, models.RequestApproved); err != nil {
			t.Fatalf("approve #%d: %v", i+1, err)
		}
	}
	if n := len(env.notifications(t, borrower.ID, models.NotifyApproved)); n != 1 {
		t.Fatalf("approved notifications = %d, want 1", n)
	}
	recs, err := env.core.Borrow.ListRecords(env.ctx, owner.ID, BorrowFilter{})
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if recs.Total != 1 {
		t.Fatalf("records = %d, want 1", recs.Total)
	}
}

func TestUpdateRequestStatusNonOwner(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "olivia")
	borrower := env.user(t, "ben")
	stranger := env.user(t, "sam")
	it := env.item(t, owner, "Sewing machine")
	req := env.request(t, borrower, it)

	for _, st := range []string{models.RequestPending, models.RequestApproved, models.RequestRejected, models.RequestCancelled, "bogus", ""} {
		_, err := env.core.Borrow.UpdateRequestStatus(env.ctx, borrower.ID, req.ID, st)
		wantErr(t, err, ErrPermissionDenied)
	}
	for _, st := range []string{models.RequestApproved, "bogus"} {
		_, err := env.core.Borrow.UpdateRequestStatus(env.ctx, stranger.ID, req.ID, st)
		wantErr(t, err, ErrNotFound)
	}
	_, err := env.core.Borrow.UpdateRequestStatus(env.ctx, owner.ID, req.ID, "bogus")
	wantErr(t, err, ErrValidation)

	got, err := env.core.Borrow.GetRequest(env.ctx, owner.ID, req.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.RequestPending {
		t.Fatalf("status = %s after denied updates, want pending", got.Status)
	}
}

func TestRejectReleasesItemWhenNoPending(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "olivia")
	b1 := env.user(t, "ben")
	b2 := env.user(t, "cara")
	it := env.item(t, owner, "Camera")
	r1 := env.request(t, b1, it)
	r2 := env.request(t, b2, it)

	if _, err := env.core.Borrow.UpdateRequestStatus(env.ctx, owner.ID, r1.ID, models.RequestRejected); err != nil {
		t.Fatalf("reject r1: %v", err)
	}
	if got := env.itemStatus(t, it.ID); got != models.ItemRequested {
		t.Fatalf("item status = %s with one pending left, want requested", got)
	}
	if _, err := env.core.Borrow.UpdateRequestStatus(env.ctx, owner.ID, r2.ID, models.RequestRejected); err != nil {
		t.Fatalf("reject r2: %v", err)
	}
	if got := env.itemStatus(t, it.ID); got != models.ItemAvailable {
		t.Fatalf("item status = %s, want available", got)
	}
	if n := len(env.notifications(t, b1.ID, models.NotifyRejected)); n != 1 {
		t.Fatalf("b1 rejected notifications = %d, want 1", n)
	}

	_, err := env.core.Borrow.UpdateRequestStatus(env.ctx, owner.ID, r1.ID, models.RequestApproved)
	wantErr(t, err, ErrValidation)
}

func TestApproveWhileOnLoan(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "olivia")
	b1 := env.user(t, "ben")
	b2 := env.user(t, "cara")
	it := env.item(t, owner, "Bike")

	r2 := env.request(t, b2, it)
	env.loan(t, owner, b1, it)

	_, err := env.core.Borrow.UpdateRequestStatus(env.ctx, owner.ID, r2.ID, models.RequestApproved)
	wantErr(t, err, ErrValidation)

	got, err := env.core.Borrow.GetRequest(env.ctx, b2.ID, r2.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.RequestPending {
		t.Fatalf("status = %s, want pending after failed approval", got.Status)
	}
}

func TestCancelRequest(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "olivia")
	borrower := env.user(t, "ben")
	it := env.item(t, owner, "Tent")
	req := env.request(t, borrower, it)

	_, err := env.core.Borrow.CancelRequest(env.ctx, owner.ID, req.ID)
	wantErr(t, err, ErrPermissionDenied)

	for i := 0; i < 2; i++ {
		out, err := env.core.Borrow.CancelRequest(env.ctx, borrower.ID, req.ID)
		if err != nil {
			t.Fatalf("cancel #%d: %v", i+1, err)
		}
		if out.Status != models.RequestCancelled {
			t.Fatalf("status = %s, want cancelled", out.Status)
		}
	}
	if got := env.itemStatus(t, it.ID); got != models.ItemAvailable {
		t.Fatalf("item status = %s, want available", got)
	}
	if n := len(env.notifications(t, borrower.ID, "")); n != 0 {
		t.Fatalf("borrower got %d notifications for own cancel", n)
	}
}

func TestReturnNotifiesOwnerOnce(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "olivia")
	borrower := env.user(t, "ben")
	it := env.item(t, owner, "Cordless drill")
	rec := env.loan(t, owner, borrower, it)

	out, err := env.core.Borrow.UpdateRecordStatus(env.ctx, borrower.ID, rec.ID, models.RecordReturned)
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if out.Status != models.RecordReturned || out.ReturnDate == nil {
		t.Fatalf("record = %+v, want returned with return_date", out)
	}
	first := *out.ReturnDate

	again, err := env.core.Borrow.UpdateRecordStatus(env.ctx, borrower.ID, rec.ID, models.RecordReturned)
	if err != nil {
		t.Fatalf("second return: %v", err)
	}
	if again.ReturnDate == nil || !again.ReturnDate.Equal(first) {
		t.Fatalf("return_date moved from %v to %v", first, again.ReturnDate)
	}

	returned := env.notifications(t, owner.ID, models.NotifyReturned)
	if len(returned) != 1 {
		t.Fatalf("owner returned notifications = %d, want 1", len(returned))
	}
	if p := returned[0].Payload(); p.Loan == nil || p.Loan.RecordID != rec.ID || p.Loan.ItemTitle != "Cordless drill" {
		t.Fatalf("unexpected payload %+v", p)
	}
	if got := env.itemStatus(t, it.ID); got != models.ItemAvailable {
		t.Fatalf("item status = %s, want available", got)
	}

	_, err = env.core.Borrow.UpdateRecordStatus(env.ctx, owner.ID, rec.ID, models.RecordOverdue)
	wantErr(t, err, ErrValidation)
}

func TestApproveRefusedWhileUnderReview(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "olivia")
	borrower := env.user(t, "ben")
	it := env.item(t, owner, "Pressure washer")
	req := env.request(t, borrower, it)

	review := models.ItemUnderReview
	if _, err := env.core.Catalog.UpdateItem(env.ctx, owner.ID, it.ID, ItemPatch{Status: &review}); err != nil {
		t.Fatalf("under_review: %v", err)
	}
	_, err := env.core.Borrow.UpdateRequestStatus(env.ctx, owner.ID, req.ID, models.RequestApproved)
	wantErr(t, err, ErrValidation)

	if got := env.itemStatus(t, it.ID); got != models.ItemUnderReview {
		t.Fatalf("item status = %s, want under_review", got)
	}
	got, err := env.core.Borrow.GetRequest(env.ctx, owner.ID, req.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.RequestPending {
		t.Fatalf("request status = %s, want pending", got.Status)
	}
	if n := len(env.notifications(t, borrower.ID, models.NotifyApproved)); n != 0 {
		t.Fatalf("approved notifications = %d, want 0", n)
	}
}

func TestReturnWithPendingRequestKeepsItemRequested(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "olivia")
	first := env.user(t, "ben")
	second := env.user(t, "sam")
	it := env.item(t, owner, "Tile cutter")
	rec := env.loan(t, owner, first, it)
	env.request(t, second, it)

	if got := env.itemStatus(t, it.ID); got != models.ItemBorrowed {
		t.Fatalf("item status while on loan = %s, want borrowed", got)
	}
	if _, err := env.core.Borrow.UpdateRecordStatus(env.ctx, first.ID, rec.ID, models.RecordReturned); err != nil {
		t.Fatalf("return: %v", err)
	}
	if got := env.itemStatus(t, it.ID); got != models.ItemRequested {
		t.Fatalf("item status after return = %s, want requested", got)
	}
}

func TestRecordStatusRules(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "olivia")
	borrower := env.user(t, "ben")
	stranger := env.user(t, "sam")
	it := env.item(t, owner, "Lawn mower")
	rec := env.loan(t, owner, borrower, it)

	_, err := env.core.Borrow.UpdateRecordStatus(env.ctx, borrower.ID, rec.ID, models.RecordLate)
	wantErr(t, err, ErrPermissionDenied)

	_, err = env.core.Borrow.UpdateRecordStatus(env.ctx, stranger.ID, rec.ID, models.RecordReturned)
	wantErr(t, err, ErrNotFound)
	_, err = env.core.Borrow.UpdateRecordStatus(env.ctx, stranger.ID, rec.ID, "lost")
	wantErr(t, err, ErrNotFound)

	_, err = env.core.Borrow.UpdateRecordStatus(env.ctx, owner.ID, rec.ID, "lost")
	wantErr(t, err, ErrValidation)

	out, err := env.core.Borrow.UpdateRecordStatus(env.ctx, owner.ID, rec.ID, models.RecordOverdue)
	if err != nil {
		t.Fatalf("overdue: %v", err)
	}
	if out.ReturnDate != nil {
		t.Fatal("overdue record must not carry a return_date")
	}
	if n := len(env.notifications(t, borrower.ID, models.NotifyOverdue)); n != 1 {
		t.Fatalf("overdue notifications = %d, want 1", n)
	}

	_, err = env.core.Borrow.UpdateRecordStatus(env.ctx, owner.ID, rec.ID, models.RecordBorrowed)
	wantErr(t, err, ErrValidation)

	out, err = env.core.Borrow.UpdateRecordStatus(env.ctx, owner.ID, rec.ID, models.RecordReturned)
	if err != nil {
		t.Fatalf("return from overdue: %v", err)
	}
	if out.ReturnDate == nil {
		t.Fatal("returned record has no return_date")
	}
}

func TestListVisibility(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")
	carol := env.user(t, "carol")

	aliceItem := env.item(t, alice, "Alice's saw")
	bobItem := env.item(t, bob, "Bob's grill")
	carolItem := env.item(t, carol, "Carol's tent")

	env.loan(t, alice, bob, aliceItem) // alice owns, bob borrows
	env.loan(t, bob, alice, bobItem)   // bob owns, alice borrows
	env.loan(t, carol, bob, carolItem) // alice not involved

	all, err := env.core.Borrow.ListRecords(env.ctx, alice.ID, BorrowFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if all.Total != 2 {
		t.Fatalf("alice sees %d records, want 2", all.Total)
	}

	mine, err := env.core.Borrow.ListRecords(env.ctx, alice.ID, BorrowFilter{Borrower: Me})
	if err != nil {
		t.Fatalf("list borrower=me: %v", err)
	}
	if mine.Total != 1 {
		t.Fatalf("borrower=me total = %d, want 1", mine.Total)
	}
	for _, r := range mine.Items {
		if r.BorrowerID != alice.ID {
			t.Fatalf("borrower=me returned record borrowed by %s", r.BorrowerID)
		}
	}

	// 用别人的 id 过滤也只能看到自己可见集合里的记录
	spy, err := env.core.Borrow.ListRequests(env.ctx, alice.ID, BorrowFilter{Borrower: bob.ID})
	if err != nil {
		t.Fatalf("list borrower=bob: %v", err)
	}
	for _, r := range spy.Items {
		if r.OwnerID != alice.ID {
			t.Fatalf("alice saw request %s between %s and %s", r.ID, r.BorrowerID, r.OwnerID)
		}
	}
	if spy.Total != 1 {
		t.Fatalf("borrower=bob as alice total = %d, want 1", spy.Total)
	}

	owned, err := env.core.Borrow.ListRequests(env.ctx, alice.ID, BorrowFilter{Owner: Me})
	if err != nil {
		t.Fatalf("list owner=me: %v", err)
	}
	if owned.Total != 1 || owned.Items[0].ItemID != aliceItem.ID {
		t.Fatalf("owner=me = %+v", owned.Items)
	}

	_, err = env.core.Borrow.ListRequests(env.ctx, alice.ID, BorrowFilter{Status: "bogus"})
	wantErr(t, err, ErrValidation)
}

func TestDamageReports(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "olivia")
	borrower := env.user(t, "ben")
	stranger := env.user(t, "sam")
	it := env.item(t, owner, "Table saw")
	rec := env.loan(t, owner, borrower, it)

	_, err := env.core.Borrow.ReportDamage(env.ctx, borrower.ID, rec.ID, "  ")
	wantErr(t, err, ErrValidation)
	_, err = env.core.Borrow.ReportDamage(env.ctx, stranger.ID, rec.ID, "scratched")
	wantErr(t, err, ErrNotFound)

	d, err := env.core.Borrow.ReportDamage(env.ctx, borrower.ID, rec.ID, "blade guard cracked")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if d.Status != models.DamageOpen {
		t.Fatalf("status = %s, want open", d.Status)
	}

	list, err := env.core.Borrow.ListDamageReports(env.ctx, owner.ID, rec.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("reports = %d, want 1", len(list))
	}

	_, err = env.core.Borrow.ResolveDamageReport(env.ctx, borrower.ID, d.ID)
	wantErr(t, err, ErrPermissionDenied)

	first, err := env.core.Borrow.ResolveDamageReport(env.ctx, owner.ID, d.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if first.Status != models.DamageResolved || first.ResolvedAt == nil {
		t.Fatalf("report = %+v, want resolved", first)
	}
	second, err := env.core.Borrow.ResolveDamageReport(env.ctx, owner.ID, d.ID)
	if err != nil {
		t.Fatalf("resolve again: %v", err)
	}
	if !second.ResolvedAt.Equal(*first.ResolvedAt) {
		t.Fatalf("resolved_at changed from %v to %v", first.ResolvedAt, second.ResolvedAt)
	}
}
