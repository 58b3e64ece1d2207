// Package reimbursement implements an employee reimbursement approval
// workflow over an asynchronous message broker.
//
// Forms move through a fixed approval chain (supervisor, department head,
// benefits coordinator) before a reimbursement is reserved against the
// requester's yearly allowance and awarded. The service layers are:
//
//   - service/form        – the workflow engine and form CRUD
//   - service/correlation – request/reply matching over one-way queues
//   - service/directory   – approver resolution against the user service
//   - service/allowance   – allowance adjustment and refunds
//   - service/inbox       – per-user approval-notice delivery
//   - service/attachment  – presigned upload/download of supporting files
//
// The package is designed to be embedded; hosts interact through the
// Service façade of this root package:
//
//	srv, _ := reimbursement.New()
//	_ = srv.Start(ctx)
//	form, _ := srv.Workflow().Create(ctx, &model.Form{...})
//	_ = srv.Workflow().Submit(ctx, form.ID)
//
// For details see the individual sub-packages.
package reimbursement
